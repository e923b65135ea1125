package pipeline

import (
	"fmt"
	"strings"

	"vehcat/internal"
	"vehcat/internal/config"
	"vehcat/internal/util"
)

// ClassificationRule maps a header signature to a category and sub-type.
// A Require token matches a header equal to it or the same name followed by
// a parenthesised unit.
type ClassificationRule struct {
	Name         string
	Require      []string
	Exclude      []string
	Category     internal.Category
	SubType      string
	Discriminate func(sig internal.TableSignature, sample [][]string) bool
}

func (r ClassificationRule) matches(sig internal.TableSignature, sample [][]string) bool {
	for _, token := range r.Require {
		if headerIndex(sig, token) < 0 {
			return false
		}
	}
	for _, token := range r.Exclude {
		if headerIndex(sig, token) >= 0 {
			return false
		}
	}
	if r.Discriminate != nil && !r.Discriminate(sig, sample) {
		return false
	}
	return true
}

type Classification struct {
	Category internal.Category
	SubType  string
	// Rule is empty when the context decided.
	Rule string
}

// DefaultRules is the built-in rule table, most specific first.
func DefaultRules() []ClassificationRule {
	return []ClassificationRule{
		{
			Name:     "energy-saving-passenger",
			Require:  []string{"排量(ml)", "综合燃料消耗量"},
			Category: internal.CategoryEnergySaving,
			SubType:  "（一）乘用车",
		},
		{
			Name:         "energy-saving-light-commercial",
			Require:      []string{"燃料种类"},
			Category:     internal.CategoryEnergySaving,
			SubType:      "（二）轻型商用车",
			Discriminate: ColumnContains("燃料种类", "CNG"),
		},
		{
			Name:         "energy-saving-heavy-commercial",
			Require:      []string{"燃料种类"},
			Category:     internal.CategoryEnergySaving,
			SubType:      "（三）重型商用车",
			Discriminate: ColumnContains("燃料种类", "LNG"),
		},
		{
			Name:     "plug-in-hybrid-passenger",
			Require:  []string{"纯电动续驶里程", "燃料消耗量", "通用名称"},
			Category: internal.CategoryNewEnergy,
			SubType:  "（一）插电式混合动力乘用车",
		},
		{
			Name:     "battery-electric-commercial",
			Require:  []string{"纯电动续驶里程", "动力蓄电池总能量"},
			Category: internal.CategoryNewEnergy,
			SubType:  "（二）纯电动商用车",
		},
		{
			Name:     "plug-in-hybrid-commercial",
			Require:  []string{"纯电动续驶里程", "燃料消耗量"},
			Exclude:  []string{"通用名称"},
			Category: internal.CategoryNewEnergy,
			SubType:  "（三）插电式混合动力商用车",
		},
		{
			Name:     "fuel-cell-commercial",
			Require:  []string{"燃料电池系统额定功率"},
			Category: internal.CategoryNewEnergy,
			SubType:  "（四）燃料电池商用车",
		},
	}
}

// RulesFromConfig converts configured rules. An empty list yields the
// built-in table.
func RulesFromConfig(cfgRules []config.RuleConfig) []ClassificationRule {
	if len(cfgRules) == 0 {
		return DefaultRules()
	}
	out := make([]ClassificationRule, 0, len(cfgRules))
	for _, rc := range cfgRules {
		rule := ClassificationRule{
			Name:     rc.Name,
			Require:  normalizeTokens(rc.Require),
			Exclude:  normalizeTokens(rc.Exclude),
			Category: internal.ParseCategory(rc.Category),
			SubType:  strings.TrimSpace(rc.SubType),
		}
		if rc.When != nil {
			rule.Discriminate = ColumnContains(rc.When.Column, rc.When.Contains)
		}
		out = append(out, rule)
	}
	return out
}

// ColumnContains accepts a table when any sample value of column contains
// needle.
func ColumnContains(column, needle string) func(internal.TableSignature, [][]string) bool {
	column = util.NormalizeHeader(column)
	return func(sig internal.TableSignature, sample [][]string) bool {
		idx := headerIndex(sig, column)
		if idx < 0 {
			return false
		}
		for _, row := range sample {
			if idx < len(row) && strings.Contains(strings.ToUpper(row[idx]), strings.ToUpper(needle)) {
				return true
			}
		}
		return false
	}
}

type Classifier struct {
	rules []ClassificationRule
}

func NewClassifier(rules []ClassificationRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify rejects tables without a sequence number or company column, then
// applies the first matching rule. Without a match the context frame is
// used as is.
func (c *Classifier) Classify(sig internal.TableSignature, frame internal.ContextFrame, sample [][]string) (Classification, error) {
	if missing := missingRequired(sig); len(missing) > 0 {
		return Classification{}, fmt.Errorf("%w: %s", internal.ErrMissingColumns, strings.Join(missing, ", "))
	}

	for _, rule := range c.rules {
		if rule.matches(sig, sample) {
			return Classification{Category: rule.Category, SubType: rule.SubType, Rule: rule.Name}, nil
		}
	}

	out := Classification{Category: frame.Category, SubType: frame.SubType}
	if out.Category == "" {
		out.Category = internal.CategoryUnknown
	}
	if out.SubType == "" {
		out.SubType = internal.SubTypeUnknown
	}
	return out, nil
}

func missingRequired(sig internal.TableSignature) []string {
	var seq, company bool
	for _, h := range sig.Headers {
		switch canonicalColumn(h) {
		case internal.FieldSequenceNumber:
			seq = true
		case internal.FieldCompany:
			company = true
		}
	}
	var missing []string
	if !seq {
		missing = append(missing, "序号")
	}
	if !company {
		missing = append(missing, "企业名称")
	}
	return missing
}

func headerIndex(sig internal.TableSignature, token string) int {
	for i, h := range sig.Headers {
		if h == token || strings.HasPrefix(h, token+"(") {
			return i
		}
	}
	return -1
}

func normalizeTokens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if n := util.NormalizeHeader(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
