package buildconfig

type configDoc struct {
	Resolution     Resolution   `yaml:"resolution"`
	FailFast       bool         `yaml:"failFast"`
	TransformRules []ruleDoc    `yaml:"transformRules"`
	SkipParsing    []Pattern    `yaml:"skipParsing"`
	PostProcessors []variantDoc `yaml:"postProcessors"`
}

type ruleDoc struct {
	Test    Pattern      `yaml:"test"`
	Exclude Matcher      `yaml:"exclude,omitempty"`
	Use     []variantDoc `yaml:"use"`
}

type variantDoc struct {
	Kind    string `yaml:"kind"`
	Options any    `yaml:"options,omitempty"`
}

// MarshalYAML renders the configuration with a kind discriminator on every
// loader and plugin.
func (c Configuration) MarshalYAML() (any, error) {
	doc := configDoc{
		Resolution:  c.Resolution,
		FailFast:    c.FailFast,
		SkipParsing: c.SkipParsing,
	}

	for _, r := range c.TransformRules {
		rd := ruleDoc{Test: r.Test, Exclude: r.Exclude}
		for _, l := range r.Use {
			rd.Use = append(rd.Use, variantDoc{Kind: string(l.Kind()), Options: l})
		}
		doc.TransformRules = append(doc.TransformRules, rd)
	}

	for _, p := range c.PostProcessors {
		doc.PostProcessors = append(doc.PostProcessors, variantDoc{Kind: string(p.Kind()), Options: p})
	}

	return doc, nil
}
