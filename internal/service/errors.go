package service

import (
	"errors"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfigurationLocked is returned when a lead's configuration was
	// locked by an automation.
	ErrConfigurationLocked = repository.ErrConfigurationLocked
	// ErrOptionReferenced explains why a delete request disabled an option
	// instead of removing it.
	ErrOptionReferenced = errors.New("option is referenced and was disabled instead of deleted")
)
