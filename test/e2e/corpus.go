// Package e2e provides end-to-end tests with a large corpus and multiple queries.
package e2e

import (
	"fmt"
	"strings"

	"github.com/locus-search/locus/internal/extract"
)

// E2EDocument is a document entry in the E2E corpus: a file name and its
// per-page content as the extractor would report it.
type E2EDocument struct {
	Name  string
	Pages []extract.PageContent
}

// QueryTestCase defines a query and the document name(s) that must appear in
// search results. At least one of ExpectedDocs must be present in the ranked
// results.
type QueryTestCase struct {
	Query        string
	ExpectedDocs []string
	Description  string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of 100 two-page documents with varied content
// and multiple query test cases. Each document carries a unique "signature"
// phrase on its first page so queries can assert the correct document is
// returned.
func BuildCorpus() *Corpus {
	docs := buildDocuments(100)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

type topic struct {
	phrase  string
	content string
}

var topics = []topic{
	{"quarterly revenue forecast", "The quarterly revenue forecast projects steady growth. Finance reviews the quarterly revenue forecast each January."},
	{"container orchestration platform", "The container orchestration platform automates deployment and scaling of workloads across the cluster."},
	{"employee onboarding checklist", "The employee onboarding checklist covers accounts, equipment, and the first-week schedule for new hires."},
	{"thermal expansion coefficient", "The thermal expansion coefficient describes how material dimensions change with temperature."},
	{"supply chain logistics", "Supply chain logistics coordinates warehouses, carriers, and customs clearance for inbound freight."},
	{"neural network training", "Neural network training adjusts weights by gradient descent over many epochs of labeled data."},
	{"building permit application", "The building permit application requires site plans, structural drawings, and a zoning review."},
	{"maritime navigation charts", "Maritime navigation charts mark depths, hazards, and shipping lanes for coastal waters."},
	{"pharmaceutical clinical trial", "The pharmaceutical clinical trial enrolled participants across three phases of safety testing."},
	{"renewable energy subsidy", "The renewable energy subsidy program funds solar and wind installations for municipalities."},
	{"volcanic eruption monitoring", "Volcanic eruption monitoring combines seismographs, gas sensors, and satellite imagery."},
	{"antique furniture restoration", "Antique furniture restoration preserves original joinery while replacing failed finishes."},
	{"municipal water treatment", "The municipal water treatment plant filters, disinfects, and tests drinking water daily."},
	{"orchestra rehearsal schedule", "The orchestra rehearsal schedule allocates stage time for strings, brass, and percussion."},
	{"wildlife migration corridor", "The wildlife migration corridor connects protected habitats across the mountain range."},
	{"cryptographic key rotation", "Cryptographic key rotation limits exposure by retiring signing keys on a fixed cadence."},
	{"aircraft maintenance logbook", "The aircraft maintenance logbook records inspections, repairs, and component replacements."},
	{"viticulture harvest report", "The viticulture harvest report tracks sugar levels and yields across the vineyard blocks."},
	{"submarine cable landing", "The submarine cable landing station terminates transoceanic fiber and feeds the national backbone."},
	{"archaeological excavation site", "The archaeological excavation site yielded pottery shards and foundations of a Roman villa."},
}

func buildDocuments(n int) []E2EDocument {
	docs := make([]E2EDocument, 0, n)
	for i := 0; i < n; i++ {
		tp := topics[i%len(topics)]
		name := fmt.Sprintf("doc-%03d.pdf", i)
		signature := fmt.Sprintf("%s volume %d", tp.phrase, i)
		docs = append(docs, E2EDocument{
			Name: name,
			Pages: []extract.PageContent{
				{Number: 1, Text: padPage(signature + ". " + tp.content)},
				{Number: 2, Text: padPage("Appendix for " + signature + ". Supplementary tables and references follow.")},
			},
		})
	}
	return docs
}

// padPage pushes page text past the near-empty threshold.
func padPage(s string) string {
	return s + strings.Repeat(" additional supporting material", 4)
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(topics))
	for i, tp := range topics {
		// Every topic repeats across documents; the volume number pins the
		// query to exactly one of them.
		cases = append(cases, QueryTestCase{
			Query:        fmt.Sprintf("%s volume %d", tp.phrase, i),
			ExpectedDocs: []string{docs[i].Name},
			Description:  fmt.Sprintf("signature phrase for %s", docs[i].Name),
		})
	}
	return cases
}
