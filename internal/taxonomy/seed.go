package taxonomy

// Category keys used by the default seed. Scoring policy severity overrides
// are keyed on these.
const (
	CategoryIdentity     = "IDENTITY_EXPOSURE"
	CategoryFinancial    = "FINANCIAL_EXPOSURE"
	CategoryProfessional = "PROFESSIONAL_EXPOSURE"
	CategorySocial       = "SOCIAL_FOOTPRINT"
	CategoryDigital      = "DIGITAL_FOOTPRINT"
)

// Seed returns the reference taxonomy snapshot. Deployments that manage the
// taxonomy externally can build their own snapshot instead; the engine only
// consumes the result.
func Seed() *Snapshot {
	b := NewBuilder()

	b.UpsertCategory(CategoryIdentity, "Identity Exposure")
	mustUpsert(b, CategoryIdentity, Ingredient{
		Key:          "email_id",
		Name:         "Email address",
		PossibleScam: "Phishing and credential-stuffing attacks",
		Sources:      []DetectionSource{SourceBreach, SourceWebSearch},
	})
	mustUpsert(b, CategoryIdentity, Ingredient{
		Key:          "phone_number",
		Name:         "Phone number",
		PossibleScam: "SIM swap and smishing",
		Sources:      []DetectionSource{SourceBreach, SourceDarkWeb, SourceWebSearch},
	})
	mustUpsert(b, CategoryIdentity, Ingredient{
		Key:          "full_name_dob",
		Name:         "Full name with date of birth",
		PossibleScam: "Identity theft and account takeover",
		Sources:      []DetectionSource{SourceDarkWeb, SourceWebSearch},
	})

	b.UpsertCategory(CategoryFinancial, "Financial Exposure")
	mustUpsert(b, CategoryFinancial, Ingredient{
		Key:          "payment_card_hint",
		Name:         "Payment card traces",
		PossibleScam: "Card-not-present fraud",
		Sources:      []DetectionSource{SourceDarkWeb, SourceBreach},
	})
	mustUpsert(b, CategoryFinancial, Ingredient{
		Key:          "bank_account_mention",
		Name:         "Bank account mentions",
		PossibleScam: "Authorized push payment fraud",
		Sources:      []DetectionSource{SourceDarkWeb},
	})
	mustUpsert(b, CategoryFinancial, Ingredient{
		Key:          "upi_vpa",
		Name:         "UPI payment address",
		PossibleScam: "Fake payment-request scams",
		Sources:      []DetectionSource{SourceWebSearch, SourceBreach},
	})

	b.UpsertCategory(CategoryProfessional, "Professional Exposure")
	mustUpsert(b, CategoryProfessional, Ingredient{
		Key:          "resume",
		Name:         "Public resume",
		PossibleScam: "Recruitment and advance-fee scams",
		Sources:      []DetectionSource{SourceWebSearch},
	})
	mustUpsert(b, CategoryProfessional, Ingredient{
		Key:          "linkedin_id",
		Name:         "LinkedIn profile",
		PossibleScam: "Targeted spear phishing",
		Sources:      []DetectionSource{SourceWebSearch},
	})
	mustUpsert(b, CategoryProfessional, Ingredient{
		Key:          "work_email",
		Name:         "Work email address",
		PossibleScam: "Business email compromise",
		Sources:      []DetectionSource{SourceBreach, SourceWebSearch},
	})

	b.UpsertCategory(CategorySocial, "Social Footprint")
	mustUpsert(b, CategorySocial, Ingredient{
		Key:          "username",
		Name:         "Reused username",
		PossibleScam: "Cross-platform impersonation",
		Sources:      []DetectionSource{SourceSocialSearch, SourceWebSearch},
	})
	mustUpsert(b, CategorySocial, Ingredient{
		Key:          "social_profiles",
		Name:         "Public social profiles",
		PossibleScam: "Romance and impersonation scams",
		Sources:      []DetectionSource{SourceSocialSearch},
	})

	b.UpsertCategory(CategoryDigital, "Digital Footprint")
	mustUpsert(b, CategoryDigital, Ingredient{
		Key:          "forum_posts",
		Name:         "Forum and community posts",
		PossibleScam: "Social-engineering pretexting",
		Sources:      []DetectionSource{SourceWebSearch, SourceSocialSearch},
	})
	mustUpsert(b, CategoryDigital, Ingredient{
		Key:          "old_accounts",
		Name:         "Dormant account traces",
		PossibleScam: "Account resurrection and takeover",
		Sources:      []DetectionSource{SourceBreach, SourceWebSearch},
	})

	return b.Build()
}

func mustUpsert(b *Builder, categoryKey string, ing Ingredient) {
	if err := b.UpsertIngredient(categoryKey, ing); err != nil {
		panic(err)
	}
}
