package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrutinise/ownership-engine/pkg/llm"
	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/ocr"
)

const (
	// extractionTemperature keeps the model close to verbatim transcription.
	extractionTemperature = 0.1

	defaultLLMAttempts  = 3
	extractionSystemMsg = "You are a precise data extraction assistant. Return only valid JSON."
)

// llmRetryBaseDelay is the backoff before the second attempt; later attempts
// double it. Variable so tests can shorten it.
var llmRetryBaseDelay = 2 * time.Second

var (
	// shareholdingBlockPattern counts the shareholding sections a statutory
	// filing lays out, independent of what the model reports.
	shareholdingBlockPattern = regexp.MustCompile(`(?i)Shareholding\s+\d+:`)

	// shareholdingEntryPattern recovers shares, optional share class, and
	// holder name from one shareholding block.
	shareholdingEntryPattern = regexp.MustCompile(`(?is)Shareholding\s+\d+:\s*([\d,]+)\s*([A-Za-z]+)?\s+shares.*?Name:\s*([^\n]+)`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// extractionResponse is the JSON schema the model is instructed to return.
type extractionResponse struct {
	Shareholders []extractedShareholder `json:"shareholders"`
}

type extractedShareholder struct {
	Name       string              `json:"name"`
	SharesHeld json.Number         `json:"shares_held"`
	ShareClass string              `json:"share_class"`
	Transfers  []extractedTransfer `json:"transfers"`
}

type extractedTransfer struct {
	Amount json.Number `json:"amount"`
	Date   string      `json:"date"`
}

// DocumentExtractor turns a filing PDF into shareholder candidates. The
// pipeline is OCR (text layer as fallback), model extraction, then a
// validation pass against the raw text; when validation rejects the model's
// output a deterministic pattern extractor takes its place.
type DocumentExtractor struct {
	text        ocr.TextExtractor
	client      llm.LLMClient
	timeout     time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewDocumentExtractor wires the extraction pipeline. A zero timeout means
// the model call runs under the caller's context alone.
func NewDocumentExtractor(text ocr.TextExtractor, client llm.LLMClient, timeout time.Duration, maxAttempts int, logger *zap.Logger) *DocumentExtractor {
	if maxAttempts <= 0 {
		maxAttempts = defaultLLMAttempts
	}
	return &DocumentExtractor{
		text:        text,
		client:      client,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		logger:      logger.Named("extraction"),
	}
}

// ExtractShareholders runs the full pipeline over one PDF. A document that
// yields no text returns no shareholders and no error; scanned filings with
// nothing legible are a normal outcome rather than a failure.
func (e *DocumentExtractor) ExtractShareholders(ctx context.Context, pdfData []byte) ([]models.Shareholder, error) {
	text, textMethod, err := e.text.ExtractText(ctx, pdfData)
	if err != nil {
		return nil, fmt.Errorf("text extraction: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Info("document yielded no text")
		return nil, nil
	}

	candidates, err := e.extractWithModel(ctx, text)
	if err != nil {
		e.logger.Warn("model extraction failed, using pattern extractor",
			zap.Error(err))
		return tagMethod(PatternExtract(text), patternMethod(textMethod)), nil
	}

	if reason := validateCandidates(text, candidates); reason != "" {
		e.logger.Warn("model output failed validation, using pattern extractor",
			zap.String("reason", reason),
			zap.Int("candidates", len(candidates)))
		return tagMethod(PatternExtract(text), patternMethod(textMethod)), nil
	}

	return tagMethod(candidates, llmMethod(textMethod)), nil
}

// extractWithModel calls the model with a bounded number of attempts,
// backing off only on rate limiting.
func (e *DocumentExtractor) extractWithModel(ctx context.Context, text string) ([]models.Shareholder, error) {
	prompt := buildExtractionPrompt(text)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := llmRetryBaseDelay * time.Duration(1<<(attempt-2))
			e.logger.Info("rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if e.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		}
		result, err := e.client.GenerateResponse(callCtx, prompt, extractionSystemMsg, extractionTemperature)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			if llm.GetErrorType(err) == llm.ErrorTypeRateLimited {
				continue
			}
			return nil, err
		}

		parsed, err := llm.ParseJSONResponse[extractionResponse](result.Content)
		if err != nil {
			return nil, fmt.Errorf("parsing extraction response: %w", err)
		}
		return convertExtracted(parsed.Shareholders), nil
	}
	return nil, fmt.Errorf("extraction attempts exhausted: %w", lastErr)
}

func convertExtracted(in []extractedShareholder) []models.Shareholder {
	out := make([]models.Shareholder, 0, len(in))
	for _, sh := range in {
		name := strings.TrimSpace(sh.Name)
		if name == "" {
			continue
		}
		shares, _ := sh.SharesHeld.Int64()

		var transfers []models.ShareTransfer
		for _, tr := range sh.Transfers {
			amount, _ := tr.Amount.Int64()
			transfers = append(transfers, models.ShareTransfer{Amount: amount, Date: tr.Date})
		}

		out = append(out, models.Shareholder{
			Name:        name,
			SharesHeld:  shares,
			SharesKnown: true,
			ShareClass:  strings.TrimSpace(sh.ShareClass),
			Transfers:   transfers,
		})
	}
	return out
}

// validateCandidates cross-checks model output against the raw document
// text. It returns an empty string when the output passes, or the reason the
// output must be discarded.
func validateCandidates(text string, candidates []models.Shareholder) string {
	if len(candidates) == 0 {
		return ""
	}

	normalized := normalizeForSearch(text)

	for _, cand := range candidates {
		if !strings.Contains(normalized, normalizeForSearch(cand.Name)) {
			return fmt.Sprintf("name %q not present in document text", cand.Name)
		}
	}

	entries := PatternExtract(text)
	for _, cand := range candidates {
		if cand.SharesHeld != 0 {
			continue
		}
		for _, entry := range entries {
			if normalizeForSearch(entry.Name) == normalizeForSearch(cand.Name) && entry.SharesHeld != 0 {
				return fmt.Sprintf("model reported zero shares for %q but document shows %d", cand.Name, entry.SharesHeld)
			}
		}
	}

	// The model may legitimately return more entries than blocks when one
	// shareholding names several joint holders, but fewer means it dropped
	// a block.
	if blocks := len(shareholdingBlockPattern.FindAllString(text, -1)); blocks > 0 && len(candidates) < blocks {
		return fmt.Sprintf("document has %d shareholding blocks but model returned %d candidates", blocks, len(candidates))
	}

	return ""
}

// PatternExtract recovers shareholders deterministically from the
// "Shareholding N: <shares> ... Name: <name>" layout statutory filings use.
func PatternExtract(text string) []models.Shareholder {
	matches := shareholdingEntryPattern.FindAllStringSubmatch(text, -1)
	out := make([]models.Shareholder, 0, len(matches))
	for _, m := range matches {
		shares, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(m[3])
		if name == "" {
			continue
		}
		out = append(out, models.Shareholder{
			Name:        name,
			SharesHeld:  shares,
			SharesKnown: true,
			ShareClass:  strings.ToUpper(strings.TrimSpace(m[2])),
		})
	}
	return out
}

func normalizeForSearch(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func tagMethod(shareholders []models.Shareholder, method models.ExtractionMethod) []models.Shareholder {
	for i := range shareholders {
		shareholders[i].Method = method
	}
	return shareholders
}

func llmMethod(textMethod ocr.Method) models.ExtractionMethod {
	if textMethod == ocr.MethodTextLayer {
		return models.ExtractionMethodTextLayerLLM
	}
	return models.ExtractionMethodOCRLLM
}

func patternMethod(textMethod ocr.Method) models.ExtractionMethod {
	if textMethod == ocr.MethodTextLayer {
		return models.ExtractionMethodTextLayerPattern
	}
	return models.ExtractionMethodOCRPattern
}

// buildExtractionPrompt renders the fixed-schema instruction block around the
// document text. The rules mirror how confirmation statements actually
// present holders: trusts named beside the legal holder must be ignored, and
// one shareholding line can list several joint holders that each become a
// separate record.
func buildExtractionPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`You are an expert at extracting shareholder information from UK company filings (CS01 forms).

Please analyze the following text from a CS01 PDF and extract all shareholder information. Return ONLY a valid JSON object with the following structure:

{
  "shareholders": [
    {
      "name": "FULL SHAREHOLDER NAME",
      "shares_held": NUMBER_OF_SHARES,
      "share_class": "SHARE_CLASS_TYPE",
      "transfers": [
        { "amount": TRANSFER_AMOUNT, "date": "YYYY-MM-DD" }
      ]
    }
  ]
}

CRITICAL Rules:
- Extract ALL shareholders mentioned in the document
- For the "name" field: Extract ONLY the text that appears after "Name:" in each shareholding section
- DO NOT include trust names, settlement names, or discretionary trust references in the "name" field
- Trust references like "RE W C ROSE DISCRETIONARY TRUST" or "RE. WC ROSE SETTLEMENT" should be IGNORED
- The shareholder name is the legal entity that holds the shares, not the trust they represent
- Example: If you see "Name: S W J ROSE" followed by "S W ROSE RE W C ROSE DISCRETIONARY TRUST", extract only "S W J ROSE"
- Example: If you see "Name: GREENE & GREENE TRUSTEES LIMITED" followed by "SWJ ROSE RE. WC ROSE SETTLEMENT", extract only "GREENE & GREENE TRUSTEES LIMITED"

IMPORTANT - Multiple Shareholders Per Shareholding:
- Sometimes a SINGLE shareholding line lists MULTIPLE separate shareholders separated by commas or ampersands
- Example: "Name: ANDREW P COOPER LIMITED, WAYNE PERRIN LIMITED, STUART D HUGHES LIMITED & JONATHAN MATHERS LIMITED"
- These are SEPARATE shareholders who should be extracted as INDIVIDUAL entries
- When splitting, you MUST preserve the exact company names (including "LIMITED", "LTD", "PLC", etc.)
- For shares_held: The total shares for that shareholding apply to ALL shareholders listed together
- When there's no way to determine individual shareholdings, use the TOTAL shares for EACH shareholder
- This allows downstream processing to identify and enrich each company separately
- Look for separators: commas (,), ampersands (&), and "AND"
- Common pattern: "COMPANY A, COMPANY B, COMPANY C & COMPANY D" should become 4 separate shareholder entries
- Each entry should have: same shares_held value, same share_class, but different name

Other Rules:
- For transfers array: include any transfer information found (amount and date), or leave as empty array [] if no transfers mentioned
- shares_held should be a number (integer) - this is the number of shares held AS AT THE DATE OF THIS CONFIRMATION STATEMENT
- If shareholding shows "0 ORDINARY shares held as at the date of this confirmation statement", set shares_held to 0
- share_class is typically "ORDINARY" but could be other types
- If no shareholders are found, return {"shareholders": []}
- Make sure names are properly capitalized and complete
- Look for sections like "Full details of Shareholders" or similar

Text from PDF:
`)
	b.WriteString(text)
	return b.String()
}
