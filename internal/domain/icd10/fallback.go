package icd10

import "time"

const fallbackVersion = "2024.1-fallback"

// fallbackDatabase is a minimal embedded dataset used when the primary code
// database cannot be loaded. Several codes reference chapters that are not
// listed, so it is only valid as a degraded catalog.
func fallbackDatabase() *Database {
	return &Database{
		Metadata: Metadata{
			Version:         fallbackVersion,
			TotalCodes:      15,
			TotalCategories: 3,
			GeneratedAt:     time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		Categories: []Category{
			{Code: "A00-B99", Title: "Certain infectious and parasitic diseases", Range: "A00-B99"},
			{Code: "C00-D49", Title: "Neoplasms", Range: "C00-D49"},
			{Code: "L00-L99", Title: "Diseases of the skin and subcutaneous tissue", Range: "L00-L99"},
		},
		Codes: []Code{
			{Code: "A09", Description: "Infectious gastroenteritis and colitis, unspecified", Category: "Certain infectious and parasitic diseases", CategoryCode: "A00-B99"},
			{Code: "B34.9", Description: "Viral infection, unspecified", Category: "Certain infectious and parasitic diseases", CategoryCode: "A00-B99"},
			{Code: "C80.1", Description: "Malignant neoplasm, unspecified", Category: "Neoplasms", CategoryCode: "C00-D49"},
			{Code: "D49.9", Description: "Neoplasm of unspecified behavior of unspecified site", Category: "Neoplasms", CategoryCode: "C00-D49"},
			{Code: "L23.9", Description: "Allergic contact dermatitis, unspecified cause", Category: "Diseases of the skin and subcutaneous tissue", CategoryCode: "L00-L99"},
			{Code: "L30.9", Description: "Dermatitis, unspecified", Category: "Diseases of the skin and subcutaneous tissue", CategoryCode: "L00-L99"},
			{Code: "L50.9", Description: "Urticaria, unspecified", Category: "Diseases of the skin and subcutaneous tissue", CategoryCode: "L00-L99"},
			{Code: "M25.50", Description: "Pain in unspecified joint", Category: "Diseases of the musculoskeletal system", CategoryCode: "M00-M99"},
			{Code: "R50.9", Description: "Fever, unspecified", Category: "Symptoms, signs and abnormal clinical findings", CategoryCode: "R00-R99"},
			{Code: "R06.02", Description: "Shortness of breath", Category: "Symptoms, signs and abnormal clinical findings", CategoryCode: "R00-R99"},
			{Code: "R51.9", Description: "Headache, unspecified", Category: "Symptoms, signs and abnormal clinical findings", CategoryCode: "R00-R99"},
			{Code: "K59.00", Description: "Constipation, unspecified", Category: "Diseases of the digestive system", CategoryCode: "K00-K95"},
			{Code: "N39.0", Description: "Urinary tract infection, site not specified", Category: "Diseases of the genitourinary system", CategoryCode: "N00-N99"},
			{Code: "J06.9", Description: "Acute upper respiratory infection, unspecified", Category: "Diseases of the respiratory system", CategoryCode: "J00-J99"},
			{Code: "Z00.00", Description: "Encounter for general adult medical examination without abnormal findings", Category: "Factors influencing health status", CategoryCode: "Z00-Z99"},
		},
	}
}

// FallbackCatalog builds the degraded catalog from the embedded dataset.
func FallbackCatalog() *Catalog {
	c, err := NewCatalog(fallbackDatabase(), true)
	if err != nil {
		panic("icd10: embedded fallback dataset is invalid: " + err.Error())
	}
	return c
}
