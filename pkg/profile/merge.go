package profile

// MergeOptions controls how candidates are applied.
type MergeOptions struct {
	// Correction is set while the user reviews the summary. An invalid
	// replacement then clears the field instead of being ignored.
	Correction bool
	// Retracted lists fields the user explicitly took back.
	Retracted []Field
}

// MergeOutcome reports what a merge did, field by field.
type MergeOutcome struct {
	Updated  []Field
	Cleared  []Field
	Rejected []*ValidationError
}

// Changed reports whether the profile differs from before the merge.
func (o MergeOutcome) Changed() bool {
	return len(o.Updated) > 0 || len(o.Cleared) > 0
}

// Merge applies extracted candidates. Valid candidates overwrite the stored
// value. Invalid ones are reported and never replace a valid value, except
// during a correction where they clear it so the field is asked again.
func (p *UserProfile) Merge(candidates map[Field]string, opts MergeOptions) (MergeOutcome, error) {
	var out MergeOutcome
	if p.Frozen {
		return out, ErrProfileFrozen
	}

	accepted := make(map[Field]bool, len(candidates))
	for _, f := range Fields {
		raw, ok := candidates[f]
		if !ok {
			continue
		}
		value, err := Accept(f, raw)
		if err != nil {
			verr, _ := err.(*ValidationError)
			if verr == nil {
				verr = &ValidationError{Field: f, Value: raw, Reason: err.Error()}
			}
			out.Rejected = append(out.Rejected, verr)
			if opts.Correction && p.Get(f) != "" {
				p.set(f, "")
				out.Cleared = append(out.Cleared, f)
			}
			continue
		}
		accepted[f] = true
		if p.Get(f) != value {
			p.set(f, value)
			out.Updated = append(out.Updated, f)
		}
	}

	for _, f := range opts.Retracted {
		if accepted[f] || p.Get(f) == "" || containsField(out.Cleared, f) {
			continue
		}
		p.set(f, "")
		out.Cleared = append(out.Cleared, f)
	}
	return out, nil
}

func containsField(fields []Field, f Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
