package domain_test

import (
	"procflow/domain"
	"testing"

	. "github.com/onsi/gomega"
)

func TestEscalationTarget(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should promote every role one level up", func(t *testing.T) {
		Expect(domain.EscalationTarget(domain.RoleOfficer)).To(Equal(domain.RoleManager))
		Expect(domain.EscalationTarget(domain.RoleManager)).To(Equal(domain.RoleDirector))
	})

	t.Run("should keep the top role at itself", func(t *testing.T) {
		Expect(domain.EscalationTarget(domain.RoleDirector)).To(Equal(domain.RoleDirector))
	})

	t.Run("should map unknown roles to the top role", func(t *testing.T) {
		Expect(domain.EscalationTarget(domain.Role(99))).To(Equal(domain.RoleDirector))
	})
}

func TestRoleString(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should render role names", func(t *testing.T) {
		Expect(domain.RoleDirector.String()).To(Equal("DIRECTOR"))
		Expect(domain.RoleManager.String()).To(Equal("MANAGER"))
		Expect(domain.RoleOfficer.String()).To(Equal("OFFICER"))
		Expect(domain.Role(0).String()).To(Equal("UNKNOWN"))
	})
}
