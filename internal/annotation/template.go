package annotation

// TemplateData holds the optional fields of the structured analysis
// template. A nil field is unset.
type TemplateData struct {
	Speaker  *string `json:"speaker,omitempty"`
	Purpose  *string `json:"purpose,omitempty"`
	Audience *string `json:"audience,omitempty"`
	Context  *string `json:"context,omitempty"`
	Exigence *string `json:"exigence,omitempty"`
	Choices  *string `json:"choices,omitempty"`
	Appeals  *string `json:"appeals,omitempty"`
	Tone     *string `json:"tone,omitempty"`
}

// Merge returns t with every field set in patch overwritten. Fields patch
// leaves nil keep their value in t.
func (t TemplateData) Merge(patch TemplateData) TemplateData {
	out := t.clone()
	for i, src := range patch.fields() {
		if *src != nil {
			v := **src
			*out.fields()[i] = &v
		}
	}
	return out
}

// IsZero reports whether no field is set.
func (t TemplateData) IsZero() bool {
	for _, f := range t.fields() {
		if *f != nil {
			return false
		}
	}
	return true
}

func (t *TemplateData) fields() []**string {
	return []**string{
		&t.Speaker, &t.Purpose, &t.Audience, &t.Context,
		&t.Exigence, &t.Choices, &t.Appeals, &t.Tone,
	}
}

func (t TemplateData) clone() TemplateData {
	var out TemplateData
	dst := out.fields()
	for i, src := range t.fields() {
		if *src != nil {
			v := **src
			*dst[i] = &v
		}
	}
	return out
}
