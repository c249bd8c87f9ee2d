package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

var (
	ErrTitleRequired      = errors.New("Title is required")
	ErrTitleTooLong       = errors.New("Title is too long")
	ErrDescriptionTooLong = errors.New("Description must be less than 500 characters")
	ErrNothingToUpdate    = errors.New("no fields to update")
)

// ValidateCreate trims the params in place and checks the form limits.
// A blank description becomes nil.
func ValidateCreate(params *CreateTaskParams) error {
	params.Title = strings.TrimSpace(params.Title)
	if err := validateTitle(params.Title); err != nil {
		return err
	}

	var err error
	params.Description, err = normalizeDescription(params.Description)
	return err
}

// ValidateUpdate checks only the fields that are present. A blank
// description is left out of the update.
func ValidateUpdate(params *UpdateTaskParams) error {
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		params.Title = &title
	}

	var err error
	params.Description, err = normalizeDescription(params.Description)
	if err != nil {
		return err
	}

	if params.IsEmpty() {
		return ErrNothingToUpdate
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func normalizeDescription(description *string) (*string, error) {
	if description == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}
	return &trimmed, nil
}
