package fees

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/internal/catalog"
	id "lingkod/pkg/domain"
)

var now = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func approvedStatus(statusType catalog.SpecialStatusType) catalog.SpecialStatus {
	approved := now.Add(-24 * time.Hour)
	return catalog.SpecialStatus{
		ResidentID: id.ResidentID(uuid.New()),
		Type:       statusType,
		ApprovedAt: &approved,
	}
}

func TestCompute_ExemptionPriority(t *testing.T) {
	// A certificate that exempts students only for school purposes, and
	// seniors unconditionally.
	docType := &catalog.DocumentType{
		BaseFee: decimal.NewFromInt(100),
		ExemptionRules: map[catalog.SpecialStatusType]catalog.ExemptionRule{
			catalog.StatusStudent: {RequiresPurpose: "school"},
			catalog.StatusSenior:  {Unconditional: true},
		},
	}
	statuses := []catalog.SpecialStatus{
		approvedStatus(catalog.StatusStudent),
		approvedStatus(catalog.StatusSenior),
	}

	t.Run("student rule wins when its purpose matches", func(t *testing.T) {
		result := Compute(docType, "school", "", true, statuses, now)
		require.NotNil(t, result.ExemptionType)
		assert.Equal(t, catalog.StatusStudent, *result.ExemptionType)
		assert.True(t, result.FinalFee.IsZero())
		assert.True(t, result.OriginalFee.Equal(decimal.NewFromInt(100)))
	})

	t.Run("senior rule applies when student purpose does not match", func(t *testing.T) {
		result := Compute(docType, "employment", "", true, statuses, now)
		require.NotNil(t, result.ExemptionType)
		assert.Equal(t, catalog.StatusSenior, *result.ExemptionType)
		assert.True(t, result.FinalFee.IsZero())
	})

	t.Run("student outranks pwd when both rules apply", func(t *testing.T) {
		dual := &catalog.DocumentType{
			BaseFee: decimal.NewFromInt(80),
			ExemptionRules: map[catalog.SpecialStatusType]catalog.ExemptionRule{
				catalog.StatusStudent: {Unconditional: true},
				catalog.StatusPWD:     {Unconditional: true},
			},
		}
		result := Compute(dual, "", "", true, []catalog.SpecialStatus{
			approvedStatus(catalog.StatusPWD),
			approvedStatus(catalog.StatusStudent),
		}, now)
		require.NotNil(t, result.ExemptionType)
		assert.Equal(t, catalog.StatusStudent, *result.ExemptionType)
	})
}

func TestCompute_ZeroBaseFeeShortCircuits(t *testing.T) {
	docType := &catalog.DocumentType{
		BaseFee: decimal.Zero,
		ExemptionRules: map[catalog.SpecialStatusType]catalog.ExemptionRule{
			catalog.StatusSenior: {Unconditional: true},
		},
	}
	result := Compute(docType, "", "", true, []catalog.SpecialStatus{
		approvedStatus(catalog.StatusSenior),
	}, now)

	assert.True(t, result.FinalFee.IsZero())
	assert.Nil(t, result.ExemptionType, "free document records no exemption")
}

func TestCompute_NoExemptionBeforeEvidence(t *testing.T) {
	docType := &catalog.DocumentType{
		BaseFee: decimal.NewFromInt(50),
		ExemptionRules: map[catalog.SpecialStatusType]catalog.ExemptionRule{
			catalog.StatusPWD: {Unconditional: true},
		},
	}
	statuses := []catalog.SpecialStatus{approvedStatus(catalog.StatusPWD)}

	pending := Compute(docType, "", "", false, statuses, now)
	assert.Nil(t, pending.ExemptionType)
	assert.True(t, pending.FinalFee.Equal(decimal.NewFromInt(50)),
		"base fee stands while evidence is pending")

	complete := Compute(docType, "", "", true, statuses, now)
	require.NotNil(t, complete.ExemptionType)
	assert.True(t, complete.FinalFee.IsZero())
}

func TestCompute_BusinessTierOverride(t *testing.T) {
	docType := &catalog.DocumentType{
		BaseFee: decimal.NewFromInt(200),
		FeeTiers: map[string]decimal.Decimal{
			"sari_sari":  decimal.NewFromInt(100),
			"enterprise": decimal.NewFromInt(500),
		},
	}

	result := Compute(docType, "", "sari_sari", true, nil, now)
	assert.True(t, result.OriginalFee.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.FinalFee.Equal(decimal.NewFromInt(100)))

	unknown := Compute(docType, "", "bakery", true, nil, now)
	assert.True(t, unknown.FinalFee.Equal(decimal.NewFromInt(200)),
		"unknown tier falls back to base fee")
}

func TestCompute_ExpiredStudentStatus(t *testing.T) {
	docType := &catalog.DocumentType{
		BaseFee: decimal.NewFromInt(75),
		ExemptionRules: map[catalog.SpecialStatusType]catalog.ExemptionRule{
			catalog.StatusStudent: {Unconditional: true},
		},
	}
	expired := now.Add(-time.Hour)
	approved := now.Add(-48 * time.Hour)
	statuses := []catalog.SpecialStatus{{
		ResidentID: id.ResidentID(uuid.New()),
		Type:       catalog.StatusStudent,
		ApprovedAt: &approved,
		ExpiresAt:  &expired,
	}}

	result := Compute(docType, "", "", true, statuses, now)
	assert.Nil(t, result.ExemptionType)
	assert.True(t, result.FinalFee.Equal(decimal.NewFromInt(75)))
}
