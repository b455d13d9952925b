package rule_test

import (
	"procflow/domain/rule"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Condition", func() {
	Describe("Match", func() {
		It("should match value threshold only when value is strictly greater", func() {
			c := rule.Condition{Kind: rule.KindValueThreshold, Threshold: 10000}
			Expect(c.Match(rule.EntitySnapshot{Value: 10000.01})).To(BeTrue())
			Expect(c.Match(rule.EntitySnapshot{Value: 10000})).To(BeFalse())
			Expect(c.Match(rule.EntitySnapshot{Value: 9999.99})).To(BeFalse())
		})

		It("should match department by equality", func() {
			c := rule.Condition{Kind: rule.KindDepartment, Value: "IT"}
			Expect(c.Match(rule.EntitySnapshot{Department: "IT"})).To(BeTrue())
			Expect(c.Match(rule.EntitySnapshot{Department: "HR"})).To(BeFalse())
			Expect(c.Match(rule.EntitySnapshot{})).To(BeFalse())
		})

		It("should match risk level by equality", func() {
			c := rule.Condition{Kind: rule.KindRiskLevel, Value: "HIGH"}
			Expect(c.Match(rule.EntitySnapshot{RiskLevel: "HIGH"})).To(BeTrue())
			Expect(c.Match(rule.EntitySnapshot{RiskLevel: "LOW"})).To(BeFalse())
		})

		It("should match project type by equality", func() {
			c := rule.Condition{Kind: rule.KindProjectType, Value: "CAPEX"}
			Expect(c.Match(rule.EntitySnapshot{ProjectType: "CAPEX"})).To(BeTrue())
			Expect(c.Match(rule.EntitySnapshot{ProjectType: "OPEX"})).To(BeFalse())
		})

		It("should never match an equality kind with an empty expected value", func() {
			c := rule.Condition{Kind: rule.KindDepartment}
			Expect(c.Match(rule.EntitySnapshot{Department: ""})).To(BeFalse())
		})

		It("should never match an unknown kind", func() {
			c := rule.Condition{Kind: "UNKNOWN_KIND", Value: "x"}
			Expect(c.Match(rule.EntitySnapshot{Department: "x", RiskLevel: "x", ProjectType: "x"})).To(BeFalse())
		})
	})

	Describe("AnyMatch", func() {
		It("should be false for an empty condition list", func() {
			Expect(rule.AnyMatch(nil, rule.EntitySnapshot{Value: 100})).To(BeFalse())
		})

		It("should be true when any single condition matches", func() {
			conditions := []rule.Condition{
				{Kind: rule.KindValueThreshold, Threshold: 50000},
				{Kind: rule.KindRiskLevel, Value: "HIGH"},
			}
			Expect(rule.AnyMatch(conditions, rule.EntitySnapshot{Value: 100, RiskLevel: "HIGH"})).To(BeTrue())
			Expect(rule.AnyMatch(conditions, rule.EntitySnapshot{Value: 60000, RiskLevel: "LOW"})).To(BeTrue())
			Expect(rule.AnyMatch(conditions, rule.EntitySnapshot{Value: 100, RiskLevel: "LOW"})).To(BeFalse())
		})
	})
})
