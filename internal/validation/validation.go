package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s]+$`)
	digitPattern = regexp.MustCompile(`\d`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// Validator normalizes raw input fields or rejects them with a validation error.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

var _ domain.Validator = (*Validator)(nil)

// Name trims and title-cases; letters and spaces only.
func (v *Validator) Name(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len([]rune(name)) < 2 {
		return "", domain.Validationf("name must have at least 2 characters")
	}
	if digitPattern.MatchString(name) {
		return "", domain.Validationf("name must not contain digits")
	}
	if !namePattern.MatchString(name) {
		return "", domain.Validationf("name must contain only letters and spaces")
	}
	return titleCase(name), nil
}

// Email is returned lower-cased.
func (v *Validator) Email(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", domain.Validationf("email is required")
	}
	if err := v.validate.Var(email, "required,email"); err != nil {
		return "", domain.Validationf("invalid email format")
	}
	return strings.ToLower(email), nil
}

// Phone keeps only digits and formats 10 or 11 of them as (XX) XXXX-XXXX or (XX) XXXXX-XXXX.
func (v *Validator) Phone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.Validationf("phone is required")
	}
	digits := nonDigit.ReplaceAllString(raw, "")
	switch len(digits) {
	case 10:
		return "(" + digits[:2] + ") " + digits[2:6] + "-" + digits[6:], nil
	case 11:
		return "(" + digits[:2] + ") " + digits[2:7] + "-" + digits[7:], nil
	default:
		return "", domain.Validationf("phone must have 10 or 11 digits")
	}
}

func (v *Validator) RoomNumber(raw string) (string, error) {
	number := strings.TrimSpace(raw)
	if number == "" {
		return "", domain.Validationf("room number is required")
	}
	return number, nil
}

func (v *Validator) RoomType(raw string) (models.RoomType, error) {
	rt, err := models.ParseRoomType(raw)
	if err != nil {
		return "", domain.Validationf("%s", err.Error())
	}
	return rt, nil
}

// Price must be a positive amount; "," is accepted as the decimal separator.
func (v *Validator) Price(raw string) (models.Money, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, domain.Validationf("price is required")
	}
	m, err := models.ParseMoney(raw)
	if err != nil {
		return 0, domain.Validationf("price must be a valid number")
	}
	if m <= 0 {
		return 0, domain.Validationf("price must be greater than zero")
	}
	return m, nil
}

func (v *Validator) Date(raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Date{}, domain.Validationf("date is required")
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, domain.Validationf("date must be in YYYY-MM-DD format")
	}
	return d, nil
}

func (v *Validator) Required(field, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", domain.Validationf("%s is required", field)
	}
	return s, nil
}

func titleCase(s string) string {
	runes := []rune(s)
	start := true
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if start {
				runes[i] = unicode.ToUpper(r)
			} else {
				runes[i] = unicode.ToLower(r)
			}
			start = false
			continue
		}
		start = true
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
