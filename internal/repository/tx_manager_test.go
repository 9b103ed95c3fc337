package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit_OutsideTransactionRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_QueuedUntilHooksRun(t *testing.T) {
	st := &txState{}
	ctx := context.WithValue(context.Background(), txKey, st)

	var order []string
	AfterCommit(ctx, func() { order = append(order, "publish") })
	AfterCommit(ctx, func() { order = append(order, "notify") })
	assert.Empty(t, order)

	st.runHooks()
	assert.Equal(t, []string{"publish", "notify"}, order)
	assert.Empty(t, st.afterCommit)
}
