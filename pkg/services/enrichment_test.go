package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrutinise/ownership-engine/pkg/models"
)

func TestTreeMetrics(t *testing.T) {
	tree := &models.OwnershipNode{
		Name:           "ACME WIDGETS LIMITED",
		RegistryNumber: "01111111",
		Classification: models.ClassificationCorporate,
		Depth:          0,
		Children: []*models.OwnershipNode{
			{
				Name:           "JOHN SMITH",
				Classification: models.ClassificationIndividual,
				Depth:          1,
			},
			{
				Name:           "ACME HOLDINGS LIMITED",
				RegistryNumber: "02222222",
				Classification: models.ClassificationCorporate,
				Depth:          1,
				Children: []*models.OwnershipNode{
					{
						Name:           "JANE OWNER",
						Classification: models.ClassificationIndividual,
						Depth:          2,
					},
				},
			},
		},
	}

	depth, entities := treeMetrics(tree)

	assert.Equal(t, 2, depth)
	assert.Equal(t, 2, entities, "individuals without registry numbers are not counted")
}

func TestTreeMetrics_NilTree(t *testing.T) {
	depth, entities := treeMetrics(nil)

	assert.Zero(t, depth)
	assert.Zero(t, entities)
}
