package detail

import "regexp"

// MLUsage lists the machine-learning frameworks and operation families a
// text refers to.
type MLUsage struct {
	Frameworks []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`
}

type signal struct {
	name    string
	pattern *regexp.Regexp
}

func signals(table [][2]string) []signal {
	out := make([]signal, 0, len(table))
	for _, row := range table {
		out = append(out, signal{name: row[0], pattern: regexp.MustCompile(row[1])})
	}
	return out
}

var frameworkSignals = signals([][2]string{
	{"tensorflow", `\b(?:tensorflow|tf|keras)\b`},
	{"pytorch", `\b(?:torch|nn\.Module)\b`},
	{"scikit-learn", `\b(?:sklearn|LinearRegression|RandomForest\w*)\b`},
	{"xgboost", `\b(?:xgboost|XGBClassifier|XGBRegressor)\b`},
	{"pandas", `\b(?:pandas|pd\.DataFrame)\b`},
	{"numpy", `\b(?:numpy|np\.array)\b`},
})

var operationSignals = signals([][2]string{
	{"training", `\b(?:fit|train|optimizer|loss|train_test_split)\b`},
	{"prediction", `\b(?:predict|inference|evaluate|score)\b`},
	{"preprocessing", `\b(?:preprocessing|standardization|normalize|fit_transform)\b`},
	{"evaluation", `\b(?:accuracy|precision|recall|f1|roc_auc|confusion_matrix)\b`},
})

// DetectML returns the detected usage. It returns nil unless the text names
// a framework or at least two operation families.
func DetectML(text string) *MLUsage {
	var u MLUsage
	for _, s := range frameworkSignals {
		if s.pattern.MatchString(text) {
			u.Frameworks = append(u.Frameworks, s.name)
		}
	}
	for _, s := range operationSignals {
		if s.pattern.MatchString(text) {
			u.Operations = append(u.Operations, s.name)
		}
	}
	if len(u.Frameworks) == 0 && len(u.Operations) < 2 {
		return nil
	}
	return &u
}
