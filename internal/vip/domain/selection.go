package domain

// MaxDays bounds every day count of a selection, ten years.
const MaxDays = 3650

// AddOn is an independently timed enhancement bought alongside (or without) a tier.
type AddOn struct {
	ServiceType ServiceType `json:"service_type"`
	Days        int         `json:"days"`
}

// Selection is the purchase a user is composing.
type Selection struct {
	Tier     Tier    `json:"tier"`
	TierDays int     `json:"tier_days"`
	AddOns   []AddOn `json:"add_ons,omitempty"`
	// AutoRenewalDays is the renewal cadence recorded when auto_renewal is bought.
	AutoRenewalDays int `json:"auto_renewal_days,omitempty"`
}

func (s Selection) HasTier() bool {
	return s.Tier != "" && s.Tier != TierNone
}

func (s Selection) Empty() bool {
	return !s.HasTier() && len(s.AddOns) == 0
}

// AddOn returns the add-on of the given type, if selected.
func (s Selection) AddOn(serviceType ServiceType) (AddOn, bool) {
	for _, a := range s.AddOns {
		if a.ServiceType == serviceType {
			return a, true
		}
	}
	return AddOn{}, false
}

// Validate checks the structure of the selection. Day counts above MaxDays
// are rejected; counts below one are left to the calculator, which coerces
// them to one day.
func (s Selection) Validate() error {
	tier := s.Tier
	if tier == "" {
		tier = TierNone
	}
	if !tier.Valid() {
		return ErrUnknownTier
	}
	if s.Empty() {
		return ErrNothingSelected
	}
	if s.TierDays > MaxDays || s.AutoRenewalDays > MaxDays {
		return ErrTooManyDays
	}
	seen := make(map[ServiceType]struct{}, len(s.AddOns))
	for _, a := range s.AddOns {
		if !a.ServiceType.Valid() {
			return ErrUnknownServiceType
		}
		if !a.ServiceType.IsAddOn() {
			return ErrNotAnAddOn
		}
		if _, dup := seen[a.ServiceType]; dup {
			return ErrDuplicateAddOn
		}
		if a.Days > MaxDays {
			return ErrTooManyDays
		}
		seen[a.ServiceType] = struct{}{}
	}
	return nil
}
