package catalog

import "github.com/jwalitptl/mediguard/internal/model"

// DefaultCatalog is used when no catalog file exists yet.
func DefaultCatalog() map[string]model.Medication {
	meds := []model.Medication{
		{Name: "Levothyroxine", Dose: "50 mcg", Schedule: []string{"06:30"}, Critical: true, Icon: model.DefaultIcon, Shape: "oval", Color: "white", Imprint: "L50"},
		{Name: "Aspirin", Dose: "75 mg", Schedule: []string{"08:00"}, Critical: false, Icon: model.DefaultIcon, Shape: "round", Color: "white", Imprint: "ASP81"},
		{Name: "Metformin", Dose: "500 mg", Schedule: []string{"13:00"}, Critical: true, Icon: model.DefaultIcon, Shape: "oval", Color: "blue", Imprint: "M500"},
		{Name: "Donepezil", Dose: "5 mg", Schedule: []string{"20:00"}, Critical: true, Icon: model.DefaultIcon, Shape: "round", Color: "yellow", Imprint: "D5"},
		{Name: "Atorvastatin", Dose: "10 mg", Schedule: []string{"21:00"}, Critical: false, Icon: model.DefaultIcon, Shape: "oval", Color: "pink", Imprint: "A10"},
	}
	out := make(map[string]model.Medication, len(meds))
	for _, m := range meds {
		out[m.Name] = m
	}
	return out
}
