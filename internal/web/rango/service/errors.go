package service

import errors "github.com/Laisky/errors/v2"

var (
	// ErrCategoryNotFound is returned when a category slug or id does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrPageNotFound is returned when a page id does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrProfileNotFound is returned when a username has no registered profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidCategory indicates the category form did not pass validation.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidPage indicates the page form did not pass validation.
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidProfile indicates the profile form did not pass validation.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrDuplicateCategory is returned when the name or its slug is already taken.
	ErrDuplicateCategory = errors.New("category already exists")
	// ErrDuplicateProfile is returned when the username is already registered.
	ErrDuplicateProfile = errors.New("profile already exists")
)
