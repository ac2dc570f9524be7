package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

// defaultMaxTreeDepth is effectively unlimited; real chains end long before
// it, and the visited set stops cycles independently.
const defaultMaxTreeDepth = 50

// TreeBuilder recursively expands corporate shareholders into an ownership
// tree. Each corporate holder is resolved back to its registry identity and
// its own shareholders are extracted, until chains end in individuals,
// unresolvable names, cycles, or the depth cap. Failures degrade the single
// affected node rather than the whole tree.
type TreeBuilder struct {
	companies    *registry.CompaniesClient
	resolver     *EntityResolver
	shareholders *ShareholderResolver
	maxDepth     int
	logger       *zap.Logger
}

// NewTreeBuilder creates a builder. A non-positive maxDepth falls back to
// the default.
func NewTreeBuilder(companies *registry.CompaniesClient, resolver *EntityResolver, shareholders *ShareholderResolver, maxDepth int, logger *zap.Logger) *TreeBuilder {
	if maxDepth <= 0 {
		maxDepth = defaultMaxTreeDepth
	}
	return &TreeBuilder{
		companies:    companies,
		resolver:     resolver,
		shareholders: shareholders,
		maxDepth:     maxDepth,
		logger:       logger.Named("tree"),
	}
}

// Build constructs the ownership tree rooted at the given company. When seed
// shareholders are provided (already extracted during enrichment) the root
// skips re-extraction and recursion starts from them.
func (b *TreeBuilder) Build(ctx context.Context, companyNumber, companyName string, seed []models.Shareholder) (*models.OwnershipNode, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	visited := make(map[string]bool)
	return b.build(ctx, companyNumber, companyName, 0, visited, seed), nil
}

func (b *TreeBuilder) build(ctx context.Context, companyNumber, companyName string, depth int, visited map[string]bool, seed []models.Shareholder) *models.OwnershipNode {
	node := &models.OwnershipNode{
		Name:           companyName,
		RegistryNumber: companyNumber,
		Depth:          depth,
		Children:       []*models.OwnershipNode{},
	}

	if visited[companyNumber] {
		b.logger.Info("circular reference detected",
			zap.String("company_number", companyNumber),
			zap.String("name", companyName),
			zap.Int("depth", depth))
		node.CircularReference = true
		return node
	}

	if depth >= b.maxDepth {
		b.logger.Warn("max depth reached",
			zap.String("company_number", companyNumber),
			zap.Int("depth", depth))
		node.MaxDepthReached = true
		return node
	}

	visited[companyNumber] = true

	shareholders, status, totalShares, snapshot, err := b.nodeShareholders(ctx, companyNumber, depth, seed)
	if err != nil {
		b.logger.Warn("node extraction failed",
			zap.String("company_number", companyNumber),
			zap.String("name", companyName),
			zap.Int("depth", depth),
			zap.Error(err))
		node.Err = err.Error()
		return node
	}

	node.ExtractionStatus = status
	node.TotalShares = totalShares
	node.Snapshot = snapshot

	for _, sh := range shareholders {
		child := &models.OwnershipNode{
			Name:           sh.Name,
			SharesHeld:     sh.SharesHeld,
			SharesKnown:    sh.SharesKnown,
			ShareClass:     sh.ShareClass,
			Percentage:     sh.Percentage,
			PercentageBand: sh.PercentageBand,
			Classification: sh.Classification,
			Depth:          depth + 1,
			Children:       []*models.OwnershipNode{},
		}
		if child.Classification == "" {
			child.Classification = ClassifyShareholder(sh.Name)
		}

		if child.Classification == models.ClassificationCorporate {
			b.expandCorporate(ctx, child, depth, visited)
		}

		node.Children = append(node.Children, child)
	}

	return node
}

// expandCorporate resolves a corporate holder's registry identity and
// recurses into its shareholders. A failed lookup degrades the node to an
// unresolved leaf.
func (b *TreeBuilder) expandCorporate(ctx context.Context, child *models.OwnershipNode, depth int, visited map[string]bool) {
	match, err := b.resolver.ResolveCompanyName(ctx, child.Name)
	if err != nil || match == nil || match.CompanyNumber == "" {
		if err != nil {
			b.logger.Warn("corporate shareholder search failed",
				zap.String("name", child.Name),
				zap.Error(err))
		} else {
			b.logger.Info("corporate shareholder not found in registry",
				zap.String("name", child.Name))
		}
		child.SearchFailed = true
		child.Classification = models.ClassificationUnresolved
		return
	}

	child.RegistryNumber = match.CompanyNumber
	child.RegistryStatus = match.EntityStatus

	subtree := b.build(ctx, match.CompanyNumber, match.EntityName, depth+1, visited, nil)
	child.Children = subtree.Children
	child.ExtractionStatus = subtree.ExtractionStatus
	child.TotalShares = subtree.TotalShares
	child.Snapshot = subtree.Snapshot
	child.CircularReference = subtree.CircularReference
	child.MaxDepthReached = subtree.MaxDepthReached
	child.Err = subtree.Err
}

// nodeShareholders gathers the shareholders for one node: the seed for the
// root when supplied, the control register for guarantee companies, filings
// with a control-register fallback for everything else.
func (b *TreeBuilder) nodeShareholders(ctx context.Context, companyNumber string, depth int, seed []models.Shareholder) ([]models.Shareholder, models.ExtractionStatus, int64, json.RawMessage, error) {
	if depth == 0 && seed != nil {
		return seed, models.ExtractionStatusPreExtracted, 0, nil, nil
	}

	profile, err := b.companies.Profile(ctx, companyNumber)
	if err != nil {
		return nil, "", 0, nil, err
	}

	if IsGuaranteeCompany(profile) {
		pscs, err := b.companies.PSCs(ctx, companyNumber)
		if err != nil {
			return nil, "", 0, nil, err
		}
		shareholders := NormalizeSingleHolderBand(ShareholdersFromPSCs(pscs, true))
		return shareholders, models.ExtractionStatusFoundViaPSCGuarantee, 0, marshalSnapshot(pscs), nil
	}

	resolution, err := b.shareholders.Resolve(ctx, companyNumber)
	if err != nil {
		return nil, "", 0, nil, err
	}
	if all := resolution.All(); len(all) > 0 {
		return all, resolution.Status, resolution.TotalShares, nil, nil
	}

	pscs, err := b.companies.PSCs(ctx, companyNumber)
	if err != nil {
		// Filings said nothing and the control register is unavailable:
		// report the filing-level status rather than an error.
		b.logger.Warn("control register unavailable",
			zap.String("company_number", companyNumber),
			zap.Error(err))
		return nil, resolution.Status, 0, nil, nil
	}

	shareholders := NormalizeSingleHolderBand(ShareholdersFromPSCs(pscs, false))
	if len(shareholders) == 0 {
		return nil, resolution.Status, 0, marshalSnapshot(pscs), nil
	}
	return shareholders, models.ExtractionStatusFoundViaPSCFallback, 0, marshalSnapshot(pscs), nil
}

func marshalSnapshot(pscs *registry.PSCList) json.RawMessage {
	if pscs == nil {
		return nil
	}
	data, err := json.Marshal(pscs)
	if err != nil {
		return nil
	}
	return data
}

// Flatten walks a tree and emits one chain per leaf, each tracing the path
// from the enrichment target's direct holders down to an ultimate owner.
func Flatten(tree *models.OwnershipNode) []models.OwnershipChain {
	var chains []models.OwnershipChain
	if tree == nil {
		return chains
	}
	var walk func(node *models.OwnershipNode, prefix []models.ChainLink)
	walk = func(node *models.OwnershipNode, prefix []models.ChainLink) {
		for _, child := range node.Children {
			link := models.ChainLink{
				Name:           child.Name,
				Percentage:     child.Percentage,
				SharesHeld:     child.SharesHeld,
				IsCompany:      child.Classification != models.ClassificationIndividual,
				RegistryNumber: child.RegistryNumber,
			}
			chain := make([]models.ChainLink, len(prefix), len(prefix)+1)
			copy(chain, prefix)
			chain = append(chain, link)

			if len(child.Children) > 0 {
				walk(child, chain)
				continue
			}

			chains = append(chains, models.OwnershipChain{
				UltimateOwner:   link.Name,
				Chain:           chain,
				ChainLength:     len(chain),
				TotalPercentage: link.Percentage,
			})
		}
	}
	walk(tree, nil)
	return chains
}
