package pipeline

import (
	"errors"
	"testing"

	"vehcat/internal"
	"vehcat/internal/config"
)

func sig(headers ...string) internal.TableSignature {
	return internal.NewTableSignature(1, headers)
}

func TestClassifierRules(t *testing.T) {
	c := NewClassifier(nil)
	frame := internal.ContextFrame{Category: internal.CategoryNewEnergy, SubType: "（九）其他", Level: 2}

	cases := []struct {
		name     string
		headers  []string
		sample   [][]string
		category internal.Category
		subType  string
	}{
		{
			name:     "passenger by displacement and consumption",
			headers:  []string{"序号", "企业名称", "排量(ml)", "综合燃料消耗量(L/100km)"},
			category: internal.CategoryEnergySaving,
			subType:  "（一）乘用车",
		},
		{
			name:     "light commercial by fuel value",
			headers:  []string{"序号", "企业名称", "燃料种类"},
			sample:   [][]string{{"1", "甲", "汽油"}, {"2", "甲", "CNG"}},
			category: internal.CategoryEnergySaving,
			subType:  "（二）轻型商用车",
		},
		{
			name:     "heavy commercial by fuel value",
			headers:  []string{"序号", "企业名称", "燃料种类"},
			sample:   [][]string{{"1", "甲", "lng"}},
			category: internal.CategoryEnergySaving,
			subType:  "（三）重型商用车",
		},
		{
			name:     "plug-in commercial excludes brand column",
			headers:  []string{"序号", "企业名称", "纯电动续驶里程", "燃料消耗量"},
			category: internal.CategoryNewEnergy,
			subType:  "（三）插电式混合动力商用车",
		},
		{
			name:     "plug-in passenger",
			headers:  []string{"序号", "企业名称", "通用名称", "纯电动续驶里程", "燃料消耗量"},
			category: internal.CategoryNewEnergy,
			subType:  "（一）插电式混合动力乘用车",
		},
		{
			name:     "fuel type without discriminating value falls back to context",
			headers:  []string{"序号", "企业名称", "燃料种类"},
			sample:   [][]string{{"1", "甲", "柴油"}},
			category: internal.CategoryNewEnergy,
			subType:  "（九）其他",
		},
		{
			name:     "company alias satisfies required columns",
			headers:  []string{"序号", "生产企业", "整车整备质量(kg)"},
			category: internal.CategoryNewEnergy,
			subType:  "（九）其他",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Classify(sig(tc.headers...), frame, tc.sample)
			if err != nil {
				t.Fatal(err)
			}
			if got.Category != tc.category || got.SubType != tc.subType {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestClassifierMissingColumns(t *testing.T) {
	c := NewClassifier(nil)
	_, err := c.Classify(sig("企业名称", "型号"), internal.ContextFrame{}, nil)
	if !errors.Is(err, internal.ErrMissingColumns) {
		t.Fatalf("err=%v", err)
	}
}

func TestClassifierEmptyContextIsUnknown(t *testing.T) {
	got, err := NewClassifier(nil).Classify(sig("序号", "企业名称"), internal.ContextFrame{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != internal.CategoryUnknown || got.SubType != internal.SubTypeUnknown || got.Rule != "" {
		t.Fatalf("got %+v", got)
	}
}

func TestRulesFromConfig(t *testing.T) {
	rules := RulesFromConfig([]config.RuleConfig{{
		Name:     "trucks",
		Require:  []string{"总质量（kg）"},
		Category: "节能型",
		SubType:  "（三）货车",
		When:     &config.RuleCondition{Column: "燃料种类", Contains: "柴油"},
	}})
	c := NewClassifier(rules)
	headers := sig("序号", "企业名称", "燃料种类", "总质量(kg)")

	got, err := c.Classify(headers, internal.ContextFrame{}, [][]string{{"1", "甲", "柴油", "3500"}})
	if err != nil {
		t.Fatal(err)
	}
	if got.Rule != "trucks" || got.Category != internal.CategoryEnergySaving {
		t.Fatalf("got %+v", got)
	}

	got, _ = c.Classify(headers, internal.ContextFrame{}, [][]string{{"1", "甲", "汽油", "3500"}})
	if got.Rule != "" {
		t.Fatalf("condition ignored: %+v", got)
	}

	if len(RulesFromConfig(nil)) != len(DefaultRules()) {
		t.Fatal("empty config should keep the built-in rules")
	}
}
