package model

// ClosedDeals aggregates leads closed into one terminal stage. Value sums the
// priced configuration totals; contact-for-pricing deals count but add nothing.
type ClosedDeals struct {
	Count int    `json:"count"`
	Value string `json:"value"`
}

// ModelRanking ranks horsebox models by builds started.
type ModelRanking struct {
	ModelID   string `json:"model_id"`
	ModelName string `json:"model_name"`
	Builds    int    `json:"builds"`
}
