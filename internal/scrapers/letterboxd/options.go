package letterboxd

// Options selects which optional fields a query populates. A nil flag means
// the caller did not say, which counts as true.
type Options struct {
	IMDBID            *bool `json:"IMDBID,omitempty"`
	Poster            *bool `json:"poster,omitempty"`
	Posters           *bool `json:"posters,omitempty"`
	Summary           *bool `json:"summary,omitempty"`
	Amount            *bool `json:"amount,omitempty"`
	AlternativeTitles *bool `json:"alternativeTitles,omitempty"`
	Director          *bool `json:"director,omitempty"`
	// Max caps the total number of items across all pages, zero or less means no cap.
	Max int `json:"max,omitempty"`
}

// Settings are Options with every default filled in.
type Settings struct {
	IMDBID            bool `json:"IMDBID"`
	Poster            bool `json:"poster"`
	Posters           bool `json:"posters"`
	Summary           bool `json:"summary"`
	Amount            bool `json:"amount"`
	AlternativeTitles bool `json:"alternativeTitles"`
	Director          bool `json:"director"`
	Max               int  `json:"max"`
}

func Bool(value bool) *bool {
	return &value
}

func orTrue(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// Resolve fills in the defaults of o, o itself is left untouched.
func (o Options) Resolve() Settings {
	limit := o.Max
	if limit < 0 {
		limit = 0
	}
	return Settings{
		IMDBID:            orTrue(o.IMDBID),
		Poster:            orTrue(o.Poster),
		Posters:           orTrue(o.Posters),
		Summary:           orTrue(o.Summary),
		Amount:            orTrue(o.Amount),
		AlternativeTitles: orTrue(o.AlternativeTitles),
		Director:          orTrue(o.Director),
		Max:               limit,
	}
}

// capped reports whether count items reach the cap.
func (s Settings) capped(count int) bool {
	return s.Max > 0 && count >= s.Max
}
