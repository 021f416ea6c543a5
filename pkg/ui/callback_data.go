package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DrillPrefix        = "l:"
	CategoryPrefix     = "c:"
	SavePrefix         = "v:"
	MaxCallbackDataLen = 64
)

type DrillAction string

const (
	DrillShow   DrillAction = "show"
	DrillSpeak  DrillAction = "speak"
	DrillKnew   DrillAction = "knew"
	DrillMissed DrillAction = "missed"
	DrillSkip   DrillAction = "skip"
)

type DrillCallback struct {
	Token  string
	Action DrillAction
}

type SaveAction string

const (
	SaveConfirm SaveAction = "save"
	SaveDismiss SaveAction = "drop"
)

type SaveCallback struct {
	Token  string
	Action SaveAction
}

// CategoryChoice is a tap in the category picker. A name that does not fit
// in callback data is sent as its index in the sorted category list.
type CategoryChoice struct {
	All     bool
	Name    string
	Index   int
	ByIndex bool
}

const allCategoriesValue = "*"

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidToken        = errors.New("invalid callback token")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildDrillCallback(token string, action DrillAction) (string, error) {
	if !isValidToken(token) {
		return "", errInvalidToken
	}
	if !isDrillAction(action) {
		return "", errInvalidAction
	}
	return validateCallbackData(DrillPrefix + token + ":" + string(action))
}

func ParseDrillCallback(data string) (DrillCallback, error) {
	token, action, err := splitTokenAction(data, DrillPrefix)
	if err != nil {
		return DrillCallback{}, err
	}
	if !isDrillAction(DrillAction(action)) {
		return DrillCallback{}, errInvalidAction
	}
	return DrillCallback{Token: token, Action: DrillAction(action)}, nil
}

func BuildSaveCallback(token string, action SaveAction) (string, error) {
	if !isValidToken(token) {
		return "", errInvalidToken
	}
	if action != SaveConfirm && action != SaveDismiss {
		return "", errInvalidAction
	}
	return validateCallbackData(SavePrefix + token + ":" + string(action))
}

func ParseSaveCallback(data string) (SaveCallback, error) {
	token, action, err := splitTokenAction(data, SavePrefix)
	if err != nil {
		return SaveCallback{}, err
	}
	switch SaveAction(action) {
	case SaveConfirm, SaveDismiss:
		return SaveCallback{Token: token, Action: SaveAction(action)}, nil
	default:
		return SaveCallback{}, errInvalidAction
	}
}

func BuildAllCategoriesCallback() (string, error) {
	return validateCallbackData(CategoryPrefix + allCategoriesValue)
}

// BuildCategoryCallback encodes the category name, or its index when the
// name is too long.
func BuildCategoryCallback(name string, index int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errInvalidValue
	}
	data := CategoryPrefix + "n:" + name
	if len(data) <= MaxCallbackDataLen && name != allCategoriesValue {
		return data, nil
	}
	if index < 0 {
		return "", errInvalidValue
	}
	return validateCallbackData(CategoryPrefix + "i:" + strconv.Itoa(index))
}

func ParseCategoryCallback(data string) (CategoryChoice, error) {
	if len(data) > MaxCallbackDataLen {
		return CategoryChoice{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, CategoryPrefix) {
		return CategoryChoice{}, errInvalidPrefix
	}
	rest := strings.TrimPrefix(data, CategoryPrefix)
	if rest == allCategoriesValue {
		return CategoryChoice{All: true}, nil
	}
	kind, value, ok := strings.Cut(rest, ":")
	if !ok || value == "" {
		return CategoryChoice{}, errInvalidValue
	}
	switch kind {
	case "n":
		return CategoryChoice{Name: value}, nil
	case "i":
		if !isASCIIUnsignedInt(value) {
			return CategoryChoice{}, errInvalidValue
		}
		index, err := strconv.Atoi(value)
		if err != nil {
			return CategoryChoice{}, errInvalidValue
		}
		return CategoryChoice{Index: index, ByIndex: true}, nil
	default:
		return CategoryChoice{}, errInvalidAction
	}
}

// Resolve maps the choice onto the current category list. ok is false when
// an index no longer points into names.
func (c CategoryChoice) Resolve(names []string) (string, bool) {
	switch {
	case c.All:
		return "", true
	case c.ByIndex:
		if c.Index < 0 || c.Index >= len(names) {
			return "", false
		}
		return names[c.Index], true
	default:
		return c.Name, true
	}
}

func splitTokenAction(data, prefix string) (string, string, error) {
	if data == "" {
		return "", "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", "", errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, prefix) {
		return "", "", errInvalidPrefix
	}
	parts := strings.Split(strings.TrimPrefix(data, prefix), ":")
	if len(parts) != 2 {
		return "", "", errInvalidAction
	}
	if !isValidToken(parts[0]) {
		return "", "", errInvalidToken
	}
	return parts[0], parts[1], nil
}

func isDrillAction(action DrillAction) bool {
	switch action {
	case DrillShow, DrillSpeak, DrillKnew, DrillMissed, DrillSkip:
		return true
	default:
		return false
	}
}

func isValidToken(token string) bool {
	if token == "" || len(token) > 32 {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
