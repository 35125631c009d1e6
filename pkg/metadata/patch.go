package metadata

// SeriesPatch is the body of a series metadata update. Nil fields are left
// untouched.
type SeriesPatch struct {
	Status        *string `json:"status,omitempty" validate:"omitempty,oneof=ONGOING ENDED ABANDONED HIATUS"`
	StatusLock    *bool   `json:"status_lock,omitempty"`
	Title         *string `json:"title,omitempty" mod:"trim" validate:"omitempty,min=1,max=500"`
	TitleLock     *bool   `json:"title_lock,omitempty"`
	TitleSort     *string `json:"title_sort,omitempty" mod:"trim" validate:"omitempty,min=1,max=500"`
	TitleSortLock *bool   `json:"title_sort_lock,omitempty"`
}

func (p SeriesPatch) Update() Update {
	u := Update{}
	if p.Status != nil {
		u.Set(FieldStatus, *p.Status)
	}
	if p.StatusLock != nil {
		u.Lock(FieldStatus, *p.StatusLock)
	}
	if p.Title != nil {
		u.Set(FieldTitle, *p.Title)
	}
	if p.TitleLock != nil {
		u.Lock(FieldTitle, *p.TitleLock)
	}
	if p.TitleSort != nil {
		u.Set(FieldTitleSort, *p.TitleSort)
	}
	if p.TitleSortLock != nil {
		u.Lock(FieldTitleSort, *p.TitleSortLock)
	}
	return u
}

// BookPatch is the body of a book metadata update.
type BookPatch struct {
	Number         *string  `json:"number,omitempty" mod:"trim" validate:"omitempty,min=1,max=50"`
	NumberLock     *bool    `json:"number_lock,omitempty"`
	NumberSort     *float64 `json:"number_sort,omitempty"`
	NumberSortLock *bool    `json:"number_sort_lock,omitempty"`
	Title          *string  `json:"title,omitempty" mod:"trim" validate:"omitempty,min=1,max=500"`
	TitleLock      *bool    `json:"title_lock,omitempty"`
}

func (p BookPatch) Update() Update {
	u := Update{}
	if p.Number != nil {
		u.Set(FieldNumber, *p.Number)
	}
	if p.NumberLock != nil {
		u.Lock(FieldNumber, *p.NumberLock)
	}
	if p.NumberSort != nil {
		u.Set(FieldNumberSort, *p.NumberSort)
	}
	if p.NumberSortLock != nil {
		u.Lock(FieldNumberSort, *p.NumberSortLock)
	}
	if p.Title != nil {
		u.Set(FieldTitle, *p.Title)
	}
	if p.TitleLock != nil {
		u.Lock(FieldTitle, *p.TitleLock)
	}
	return u
}
