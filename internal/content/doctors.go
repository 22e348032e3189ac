// Package content содержит премиальные справочники: врачей, к которым можно
// записаться, и трекер срока родов.
package content

import (
	"errors"
	"sort"
)

// ErrDoctorNotFound врач с таким ID не найден.
var ErrDoctorNotFound = errors.New("doctor not found")

// Doctor врач из каталога.
type Doctor struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	ExperienceYears int      `json:"experience_years"`
	Languages       []string `json:"languages"`
	City            string   `json:"city"`
	ConsultTypes    []string `json:"consult_types"`
	FeeINR          int      `json:"fee_inr"`
}

var doctors = []Doctor{
	{
		ID: "dr-anjali-rao", Name: "Dr. Anjali Rao", Specialty: "Obstetrics & Gynaecology",
		ExperienceYears: 14, Languages: []string{"English", "Hindi", "Kannada"}, City: "Bengaluru",
		ConsultTypes: []string{"video", "clinic"}, FeeINR: 900,
	},
	{
		ID: "dr-meenakshi-iyer", Name: "Dr. Meenakshi Iyer", Specialty: "Maternal Nutrition",
		ExperienceYears: 9, Languages: []string{"English", "Tamil"}, City: "Chennai",
		ConsultTypes: []string{"video"}, FeeINR: 600,
	},
	{
		ID: "dr-farah-khan", Name: "Dr. Farah Khan", Specialty: "High-Risk Pregnancy",
		ExperienceYears: 18, Languages: []string{"English", "Hindi", "Urdu"}, City: "Mumbai",
		ConsultTypes: []string{"video", "clinic"}, FeeINR: 1500,
	},
	{
		ID: "dr-priya-nair", Name: "Dr. Priya Nair", Specialty: "Lactation Consultant",
		ExperienceYears: 7, Languages: []string{"English", "Malayalam"}, City: "Kochi",
		ConsultTypes: []string{"video", "chat"}, FeeINR: 500,
	},
	{
		ID: "dr-sunita-desai", Name: "Dr. Sunita Desai", Specialty: "Obstetrics & Gynaecology",
		ExperienceYears: 22, Languages: []string{"English", "Gujarati", "Hindi"}, City: "Ahmedabad",
		ConsultTypes: []string{"clinic"}, FeeINR: 1200,
	},
}

// Doctors возвращает каталог, отфильтрованный по специальности.
// Пустой specialty означает всех врачей. Порядок: опыт по убыванию.
func Doctors(specialty string) []Doctor {
	result := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		if specialty == "" || d.Specialty == specialty {
			result = append(result, d)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExperienceYears > result[j].ExperienceYears
	})
	return result
}

// DoctorByID возвращает врача или ErrDoctorNotFound.
func DoctorByID(id string) (Doctor, error) {
	for _, d := range doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return Doctor{}, ErrDoctorNotFound
}
