package interaction

const (
	curatedVersion     = "2024-10-01"
	curatedLastUpdated = "2024-10-01"
)

// curatedDatabase is the embedded drug interaction dataset.
func curatedDatabase() *Database {
	return &Database{
		Version: curatedVersion,
		Drugs: []Drug{
			{
				ID: "warfarin", Name: "Warfarin", GenericName: "warfarin sodium",
				BrandNames:        []string{"Coumadin", "Jantoven"},
				Category:          CategoryCardiovascular,
				ActiveIngredients: []string{"warfarin sodium"},
				Mechanism:         "Vitamin K antagonist anticoagulant",
				CommonUses:        []string{"Anticoagulation for atrial fibrillation", "DVT/PE prevention and treatment"},
				FDAApproved:       true,
			},
			{
				ID: "aspirin", Name: "Aspirin", GenericName: "acetylsalicylic acid",
				BrandNames:        []string{"Bayer", "Bufferin", "Ecotrin"},
				Category:          CategoryCardiovascular,
				ActiveIngredients: []string{"acetylsalicylic acid"},
				Mechanism:         "COX-1 and COX-2 inhibitor, antiplatelet",
				CommonUses:        []string{"Cardioprotection", "Pain relief", "Anti-inflammatory"},
				FDAApproved:       true,
			},
			{
				ID: "lisinopril", Name: "Lisinopril", GenericName: "lisinopril",
				BrandNames:        []string{"Prinivil", "Zestril"},
				Category:          CategoryCardiovascular,
				ActiveIngredients: []string{"lisinopril"},
				Mechanism:         "ACE inhibitor",
				CommonUses:        []string{"Hypertension", "Heart failure", "Post-MI cardioprotection"},
				FDAApproved:       true,
			},
			{
				ID: "metoprolol", Name: "Metoprolol", GenericName: "metoprolol tartrate",
				BrandNames:        []string{"Lopressor", "Toprol-XL"},
				Category:          CategoryCardiovascular,
				ActiveIngredients: []string{"metoprolol tartrate", "metoprolol succinate"},
				Mechanism:         "Selective beta-1 adrenergic blocker",
				CommonUses:        []string{"Hypertension", "Angina", "Heart failure"},
				FDAApproved:       true,
			},
			{
				ID: "sertraline", Name: "Sertraline", GenericName: "sertraline hydrochloride",
				BrandNames:        []string{"Zoloft"},
				Category:          CategoryMentalHealth,
				ActiveIngredients: []string{"sertraline hydrochloride"},
				Mechanism:         "Selective serotonin reuptake inhibitor (SSRI)",
				CommonUses:        []string{"Depression", "Anxiety disorders", "PTSD", "OCD"},
				FDAApproved:       true,
			},
			{
				ID: "fluoxetine", Name: "Fluoxetine", GenericName: "fluoxetine hydrochloride",
				BrandNames:        []string{"Prozac", "Sarafem"},
				Category:          CategoryMentalHealth,
				ActiveIngredients: []string{"fluoxetine hydrochloride"},
				Mechanism:         "Selective serotonin reuptake inhibitor (SSRI)",
				CommonUses:        []string{"Depression", "Bulimia nervosa", "OCD", "Panic disorder"},
				FDAApproved:       true,
			},
			{
				ID: "alprazolam", Name: "Alprazolam", GenericName: "alprazolam",
				BrandNames:        []string{"Xanax", "Niravam"},
				Category:          CategoryMentalHealth,
				ActiveIngredients: []string{"alprazolam"},
				Mechanism:         "Benzodiazepine, GABA-A receptor agonist",
				CommonUses:        []string{"Anxiety disorders", "Panic disorder"},
				FDAApproved:       true,
			},
			{
				ID: "metformin", Name: "Metformin", GenericName: "metformin hydrochloride",
				BrandNames:        []string{"Glucophage", "Fortamet", "Glumetza"},
				Category:          CategoryEndocrine,
				ActiveIngredients: []string{"metformin hydrochloride"},
				Mechanism:         "Biguanide, decreases hepatic glucose production",
				CommonUses:        []string{"Type 2 diabetes", "PCOS", "Metabolic syndrome"},
				FDAApproved:       true,
			},
			{
				ID: "insulin", Name: "Insulin", GenericName: "insulin",
				BrandNames:        []string{"Humalog", "Novolog", "Lantus", "Levemir"},
				Category:          CategoryEndocrine,
				ActiveIngredients: []string{"insulin lispro", "insulin aspart", "insulin glargine"},
				Mechanism:         "Hormone replacement, glucose homeostasis",
				CommonUses:        []string{"Type 1 diabetes", "Type 2 diabetes"},
				FDAApproved:       true,
			},
			{
				ID: "ibuprofen", Name: "Ibuprofen", GenericName: "ibuprofen",
				BrandNames:        []string{"Advil", "Motrin", "Nuprin"},
				Category:          CategoryPainManagement,
				ActiveIngredients: []string{"ibuprofen"},
				Mechanism:         "Non-selective COX inhibitor (NSAID)",
				CommonUses:        []string{"Pain relief", "Inflammation", "Fever reduction"},
				FDAApproved:       true,
			},
			{
				ID: "acetaminophen", Name: "Acetaminophen", GenericName: "acetaminophen",
				BrandNames:        []string{"Tylenol", "Panadol"},
				Category:          CategoryPainManagement,
				ActiveIngredients: []string{"acetaminophen"},
				Mechanism:         "Central COX inhibition, unclear mechanism",
				CommonUses:        []string{"Pain relief", "Fever reduction"},
				FDAApproved:       true,
			},
			{
				ID: "amoxicillin", Name: "Amoxicillin", GenericName: "amoxicillin",
				BrandNames:        []string{"Amoxil", "Trimox"},
				Category:          CategoryInfectiousDisease,
				ActiveIngredients: []string{"amoxicillin"},
				Mechanism:         "Beta-lactam antibiotic, cell wall synthesis inhibitor",
				CommonUses:        []string{"Bacterial infections", "Strep throat", "UTIs"},
				FDAApproved:       true,
			},
			{
				ID: "azithromycin", Name: "Azithromycin", GenericName: "azithromycin",
				BrandNames:        []string{"Zithromax", "Z-Pak"},
				Category:          CategoryInfectiousDisease,
				ActiveIngredients: []string{"azithromycin"},
				Mechanism:         "Macrolide antibiotic, protein synthesis inhibitor",
				CommonUses:        []string{"Respiratory infections", "Skin infections", "STDs"},
				FDAApproved:       true,
			},
			// Not a medication, but referenced by the metformin interaction.
			{
				ID: "alcohol", Name: "Alcohol", GenericName: "ethanol",
				BrandNames:        []string{},
				Category:          CategoryOther,
				ActiveIngredients: []string{"ethanol"},
				Mechanism:         "Central nervous system depressant",
				FDAApproved:       false,
			},
		},
		Interactions: []Interaction{
			{
				ID: "warfarin-aspirin", Drug1ID: "warfarin", Drug2ID: "aspirin",
				Drug1Name: "Warfarin", Drug2Name: "Aspirin",
				Severity:                 SeverityMajor,
				Mechanism:                "Additive anticoagulant and antiplatelet effects",
				Description:              "Concurrent use significantly increases bleeding risk",
				ClinicalEffect:           "Increased risk of serious bleeding, including GI and intracranial hemorrhage",
				ManagementRecommendation: "Avoid combination if possible. If necessary, use lowest effective aspirin dose with frequent INR monitoring and bleeding assessment.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"FDA Drug Label", "Clinical Pharmacology Review"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "warfarin-ibuprofen", Drug1ID: "warfarin", Drug2ID: "ibuprofen",
				Drug1Name: "Warfarin", Drug2Name: "Ibuprofen",
				Severity:                 SeverityMajor,
				Mechanism:                "NSAIDs inhibit platelet function and may increase warfarin levels",
				Description:              "Increased bleeding risk and potential displacement from protein binding",
				ClinicalEffect:           "Significantly increased risk of bleeding complications",
				ManagementRecommendation: "Avoid NSAIDs in patients on warfarin. Consider acetaminophen for pain relief. If NSAID necessary, use short-term with careful monitoring.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"Cochrane Review", "Clinical Guidelines"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "sertraline-aspirin", Drug1ID: "sertraline", Drug2ID: "aspirin",
				Drug1Name: "Sertraline", Drug2Name: "Aspirin",
				Severity:                 SeverityModerate,
				Mechanism:                "SSRIs affect platelet serotonin, aspirin inhibits platelet aggregation",
				Description:              "Combined antiplatelet effects increase bleeding risk",
				ClinicalEffect:           "Increased risk of bleeding, particularly GI bleeding",
				ManagementRecommendation: "Monitor for signs of bleeding. Consider gastroprotection if long-term use necessary.",
				EvidenceLevel:            EvidenceProbable,
				Sources:                  []string{"Pharmacovigilance Studies", "Meta-analysis"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "fluoxetine-alprazolam", Drug1ID: "fluoxetine", Drug2ID: "alprazolam",
				Drug1Name: "Fluoxetine", Drug2Name: "Alprazolam",
				Severity:                 SeverityModerate,
				Mechanism:                "Fluoxetine inhibits CYP3A4 metabolism of alprazolam",
				Description:              "Increased alprazolam levels and prolonged effects",
				ClinicalEffect:           "Enhanced sedation, increased risk of respiratory depression",
				ManagementRecommendation: "Consider dose reduction of alprazolam. Monitor for excessive sedation. Consider alternative benzodiazepine less affected by CYP3A4.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"Pharmacokinetic Studies", "FDA Guidance"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "lisinopril-ibuprofen", Drug1ID: "lisinopril", Drug2ID: "ibuprofen",
				Drug1Name: "Lisinopril", Drug2Name: "Ibuprofen",
				Severity:                 SeverityModerate,
				Mechanism:                "NSAIDs reduce prostaglandin synthesis, counteracting ACE inhibitor effects",
				Description:              "Reduced antihypertensive effect and potential kidney function impairment",
				ClinicalEffect:           "Decreased blood pressure control, increased risk of acute kidney injury",
				ManagementRecommendation: "Monitor blood pressure and kidney function. Use lowest effective NSAID dose for shortest duration. Consider alternative pain management.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"Hypertension Guidelines", "Nephrology Reviews"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "metformin-alcohol", Drug1ID: "metformin", Drug2ID: "alcohol",
				Drug1Name: "Metformin", Drug2Name: "Alcohol",
				Severity:                 SeverityMajor,
				Mechanism:                "Both can cause lactic acidosis, alcohol affects glucose metabolism",
				Description:              "Increased risk of lactic acidosis and unpredictable glucose effects",
				ClinicalEffect:           "Life-threatening lactic acidosis, hypoglycemia or hyperglycemia",
				ManagementRecommendation: "Limit alcohol consumption. Avoid excessive or binge drinking. Monitor for signs of lactic acidosis.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"FDA Black Box Warning", "Endocrinology Guidelines"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "metoprolol-insulin", Drug1ID: "metoprolol", Drug2ID: "insulin",
				Drug1Name: "Metoprolol", Drug2Name: "Insulin",
				Severity:                 SeverityModerate,
				Mechanism:                "Beta-blockers can mask hypoglycemic symptoms and affect glucose recovery",
				Description:              "Masked hypoglycemia symptoms and prolonged hypoglycemic episodes",
				ClinicalEffect:           "Delayed recognition of hypoglycemia, impaired glucose recovery",
				ManagementRecommendation: "Increased glucose monitoring, patient education on altered hypoglycemia symptoms. Consider cardioselective beta-blockers.",
				EvidenceLevel:            EvidenceEstablished,
				Sources:                  []string{"Diabetes Care Guidelines", "Cardiology Reviews"},
				LastUpdated:              curatedLastUpdated,
			},
			{
				ID: "azithromycin-warfarin", Drug1ID: "azithromycin", Drug2ID: "warfarin",
				Drug1Name: "Azithromycin", Drug2Name: "Warfarin",
				Severity:                 SeverityModerate,
				Mechanism:                "Possible inhibition of warfarin metabolism and alteration of gut flora",
				Description:              "Potential increase in warfarin effect and bleeding risk",
				ClinicalEffect:           "Increased INR and bleeding risk",
				ManagementRecommendation: "Monitor INR more frequently during and after antibiotic course. Watch for signs of bleeding.",
				EvidenceLevel:            EvidenceProbable,
				Sources:                  []string{"Case Reports", "Anticoagulation Guidelines"},
				LastUpdated:              curatedLastUpdated,
			},
		},
	}
}

// CuratedDatabase returns a copy of the embedded dataset, e.g. for seeding
// or publishing.
func CuratedDatabase() *Database { return curatedDatabase() }

// CuratedCatalog builds the catalog from the embedded dataset.
func CuratedCatalog() *Catalog {
	c, err := NewCatalog(curatedDatabase())
	if err != nil {
		panic("interaction: embedded dataset is invalid: " + err.Error())
	}
	return c
}
