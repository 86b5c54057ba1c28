package wizard

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// AccountRecord is the typed view of the account step.
type AccountRecord struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone"`
	Website         string `json:"website"`
}

// PersonalRecord is the typed view of the personal step.
type PersonalRecord struct {
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	Country          string   `json:"country"`
	Language         []string `json:"language"`
	Gender           string   `json:"gender"`
	BirthDate        string   `json:"birthDate"`
	RegistrationDate string   `json:"registrationDate"`
	Experience       string   `json:"experience"`
	Skills           []string `json:"skills"`
	Newsletter       *bool    `json:"newsletter,omitempty"`
	Terms            *bool    `json:"terms,omitempty"`
}

// AdvancedRecord is the typed view of the advanced step.
type AdvancedRecord struct {
	Bio           string   `json:"bio"`
	Files         []string `json:"files"`
	Notifications []string `json:"notifications"`
	Priority      string   `json:"priority"`
}

// DecodeAccount decodes partial account data, ignoring fields of the wrong type.
func DecodeAccount(data map[string]any) AccountRecord {
	var rec AccountRecord
	_ = decodeRecord(data, &rec)
	return rec
}

// DecodePersonal decodes partial personal data, ignoring fields of the wrong type.
func DecodePersonal(data map[string]any) PersonalRecord {
	var rec PersonalRecord
	_ = decodeRecord(data, &rec)
	return rec
}

// DecodeAdvanced decodes partial advanced data, ignoring fields of the wrong type.
func DecodeAdvanced(data map[string]any) AdvancedRecord {
	var rec AdvancedRecord
	_ = decodeRecord(data, &rec)
	return rec
}

// decodeRecord fills out from data and returns the keys whose values could
// not be decoded. Those keys are left at their zero value.
func decodeRecord(data map[string]any, out any) map[string]bool {
	if len(data) == 0 {
		return nil
	}
	if err := decodeInto(data, out); err == nil {
		return nil
	}
	elem := reflect.TypeOf(out).Elem()
	bad := map[string]bool{}
	good := make(map[string]any, len(data))
	for key, value := range data {
		scratch := reflect.New(elem).Interface()
		if err := decodeInto(map[string]any{key: value}, scratch); err != nil {
			bad[key] = true
			continue
		}
		good[key] = value
	}
	reflect.ValueOf(out).Elem().Set(reflect.Zero(elem))
	_ = decodeInto(good, out)
	return bad
}

func decodeInto(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}
