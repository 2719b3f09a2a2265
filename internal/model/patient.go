package model

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type BloodType string

// BloodTypes lists every accepted blood group.
var BloodTypes = []BloodType{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

// Patient is the aggregate returned by /api/patients/{id}/, including the
// nested reports and classification results. The id is assigned once at
// creation and keys every sub-resource operation.
type Patient struct {
	ID                 int                    `json:"id" validate:"gte=0,lte=999999"`
	Owner              int                    `json:"user,omitempty"`
	FullName           string                 `json:"fullname" validate:"required,min=2"`
	Phone              string                 `json:"phone" validate:"required,min=6"`
	Email              string                 `json:"email" validate:"required,email"`
	Gender             Gender                 `json:"gender" validate:"required,oneof=male female"`
	Age                int                    `json:"age" validate:"gte=0,lte=120"`
	Address            string                 `json:"address" validate:"required,min=2"`
	BloodType          BloodType              `json:"blood_type" validate:"required,oneof=A+ A- B+ B- O+ O- AB+ AB-"`
	MedicalConditions  string                 `json:"medical_conditions"`
	CurrentMedications string                 `json:"current_medications"`
	EmergencyName      string                 `json:"emergency_name" validate:"required,min=2"`
	EmergencyPhone     string                 `json:"emergency_phone" validate:"required,min=6"`
	ProfilePicture     *string                `json:"profile_picture,omitempty"`
	CreatedAt          *time.Time             `json:"created_at,omitempty"`
	Reports            []Report               `json:"reports,omitempty"`
	Results            []ClassificationResult `json:"results,omitempty"`
}

// PatientPayload is the editable subset sent on create (with id) and on
// full-replace update (without id).
type PatientPayload struct {
	ID                 int       `json:"id,omitempty"`
	FullName           string    `json:"fullname"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	Gender             Gender    `json:"gender"`
	Age                int       `json:"age"`
	Address            string    `json:"address"`
	BloodType          BloodType `json:"blood_type"`
	MedicalConditions  string    `json:"medical_conditions"`
	CurrentMedications string    `json:"current_medications"`
	EmergencyName      string    `json:"emergency_name"`
	EmergencyPhone     string    `json:"emergency_phone"`
}

// Normalize trims text fields and lower-cases gender so that "Male" from a
// form maps onto the backend enum.
func (p *Patient) Normalize() {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.TrimSpace(p.Email)
	p.Gender = Gender(strings.ToLower(strings.TrimSpace(string(p.Gender))))
	p.Address = strings.TrimSpace(p.Address)
	p.BloodType = BloodType(strings.ToUpper(strings.TrimSpace(string(p.BloodType))))
	p.EmergencyName = strings.TrimSpace(p.EmergencyName)
	p.EmergencyPhone = strings.TrimSpace(p.EmergencyPhone)
}

// Payload returns the wire body for p. includeID is false for updates, where
// the id travels in the path.
func (p Patient) Payload(includeID bool) PatientPayload {
	out := PatientPayload{
		FullName:           p.FullName,
		Phone:              p.Phone,
		Email:              p.Email,
		Gender:             p.Gender,
		Age:                p.Age,
		Address:            p.Address,
		BloodType:          p.BloodType,
		MedicalConditions:  p.MedicalConditions,
		CurrentMedications: p.CurrentMedications,
		EmergencyName:      p.EmergencyName,
		EmergencyPhone:     p.EmergencyPhone,
	}
	if includeID {
		out.ID = p.ID
	}
	return out
}

// HasResult reports whether the aggregate contains the classification result.
func (p *Patient) HasResult(resultID int) bool {
	for _, r := range p.Results {
		if r.ID == resultID {
			return true
		}
	}
	return false
}

// AnnotatedImages returns the distinct annotated image URLs across results.
func (p *Patient) AnnotatedImages() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range p.Results {
		if r.AnnotatedImage == nil || *r.AnnotatedImage == "" {
			continue
		}
		if _, ok := seen[*r.AnnotatedImage]; ok {
			continue
		}
		seen[*r.AnnotatedImage] = struct{}{}
		out = append(out, *r.AnnotatedImage)
	}
	return out
}
