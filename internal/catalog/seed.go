package catalog

// Category names used by the seed catalog
const (
	CategoryDigestive       = "Digestive System"
	CategoryMusculoskeletal = "Musculoskeletal System"
	CategoryEndocrine       = "Endocrine System"
	CategoryRespiratory     = "Respiratory System"
	CategoryCardiovascular  = "Cardiovascular System"
	CategoryMentalHealth    = "Mental Health"
	CategoryNeurological    = "Neurological System"
)

func seed() []Disease {
	return []Disease{
		{
			ID:          "1",
			Name:        "Amlapitta",
			ICD:         "K25.9",
			TM2:         "TM2001",
			Description: "A digestive disorder characterized by hyperacidity and burning sensation in the stomach",
			Category:    CategoryDigestive,
			Synonyms:    []string{"Hyperacidity", "Acid Peptic Disease"},
		},
		{
			ID:          "2",
			Name:        "Arsha",
			ICD:         "K64.9",
			TM2:         "TM2002",
			Description: "Hemorrhoids or piles, characterized by swollen veins in the rectum and anus",
			Category:    CategoryDigestive,
			Synonyms:    []string{"Piles", "Hemorrhoids"},
		},
		{
			ID:          "3",
			Name:        "Sandhigata Vata",
			ICD:         "M19.9",
			TM2:         "TM2003",
			Description: "Osteoarthritis - degenerative joint disease affecting cartilage and bones",
			Category:    CategoryMusculoskeletal,
			Synonyms:    []string{"Osteoarthritis", "Joint Pain"},
		},
		{
			ID:          "4",
			Name:        "Madhumeha",
			ICD:         "E11.9",
			TM2:         "TM2004",
			Description: "Diabetes mellitus - a metabolic disorder characterized by high blood sugar levels",
			Category:    CategoryEndocrine,
			Synonyms:    []string{"Diabetes", "High Blood Sugar"},
		},
		{
			ID:          "5",
			Name:        "Kasa",
			ICD:         "R05",
			TM2:         "TM2005",
			Description: "Cough - a sudden expulsion of air from the lungs",
			Category:    CategoryRespiratory,
			Synonyms:    []string{"Cough", "Tussis"},
		},
		{
			ID:          "6",
			Name:        "Swasa",
			ICD:         "J44.9",
			TM2:         "TM2006",
			Description: "Breathlessness or dyspnea, difficulty in breathing",
			Category:    CategoryRespiratory,
			Synonyms:    []string{"Asthma", "Dyspnea", "Breathlessness"},
		},
		{
			ID:          "7",
			Name:        "Pratishyaya",
			ICD:         "J00",
			TM2:         "TM2007",
			Description: "Common cold or rhinitis with nasal congestion and discharge",
			Category:    CategoryRespiratory,
			Synonyms:    []string{"Common Cold", "Rhinitis"},
		},
		{
			ID:          "8",
			Name:        "Hridroga",
			ICD:         "I25.9",
			TM2:         "TM2008",
			Description: "Heart disease including various cardiac conditions",
			Category:    CategoryCardiovascular,
			Synonyms:    []string{"Heart Disease", "Cardiac Disorder"},
		},
		{
			ID:          "9",
			Name:        "Unmada",
			ICD:         "F29",
			TM2:         "TM2009",
			Description: "Mental disorder or psychosis with altered consciousness",
			Category:    CategoryMentalHealth,
			Synonyms:    []string{"Psychosis", "Mental Disorder"},
		},
		{
			ID:          "10",
			Name:        "Apasmara",
			ICD:         "G40.9",
			TM2:         "TM2010",
			Description: "Epilepsy - a neurological disorder causing seizures",
			Category:    CategoryNeurological,
			Synonyms:    []string{"Epilepsy", "Seizure Disorder"},
		},
	}
}
