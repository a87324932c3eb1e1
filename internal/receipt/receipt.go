// Package receipt extracts transaction details from receipt images
// with Gemini and archives the originals to Cloud Storage.
package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/welthhq/welth/internal/domain"
)

// MaxFileSize is the upload ceiling for receipt images.
const MaxFileSize = 5 * 1024 * 1024

var validMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Record is the structured result of a receipt scan.
type Record struct {
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchantName"`
	Category     string          `json:"category"`
}

// generator is the slice of the Gemini client the scanner uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Scanner turns receipt images into Records.
type Scanner struct {
	gen   generator
	model string
	now   func() time.Time
}

// NewScanner creates a scanner backed by a Gemini client. Credentials
// come from the environment, same as the rest of the Google stack.
func NewScanner(ctx context.Context, model string) (*Scanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("receipt: create genai client: %w", err)
	}
	return &Scanner{gen: client.Models, model: model, now: time.Now}, nil
}

const promptTemplate = `Analyze this receipt image and extract the following information in JSON format:
- Total amount (just the number, no currency symbols)
- Date (in ISO format YYYY-MM-DD)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: housing,transportation,groceries,utilities,entertainment,food,shopping,healthcare,education,personal,travel,insurance,gifts,bills,other-expense)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "YYYY-MM-DD",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

Return ONLY valid raw JSON.
Do NOT wrap the response in code fences.
Do NOT use markdown.

If this is not a receipt or you cannot extract the information, return:
{
  "amount": 0,
  "date": "%s",
  "description": "Could not parse receipt",
  "merchantName": "Unknown",
  "category": "other-expense"
}`

// Scan sends the image to the model and parses its answer. Malformed
// model output degrades to the fixed fallback record rather than an
// error; only transport failures and invalid uploads fail.
func (s *Scanner) Scan(ctx context.Context, data []byte, mimeType string) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file provided", domain.ErrInvalidArgument)
	}
	if !validMIMETypes[mimeType] {
		return nil, fmt.Errorf("%w: invalid file type %q, want JPEG, PNG or WebP", domain.ErrInvalidArgument, mimeType)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: file too large, limit is 5MB", domain.ErrInvalidArgument)
	}

	prompt := fmt.Sprintf(promptTemplate, s.now().Format("2006-01-02"))
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: prompt},
			},
		},
	}

	resp, err := s.gen.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt scan: %v", domain.ErrUpstream, err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("%w: receipt scan: empty model response", domain.ErrUpstream)
	}

	return s.parse(raw), nil
}

// wire mirrors the JSON shape the prompt demands; amounts arrive as
// bare numbers.
type wire struct {
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	MerchantName string  `json:"merchantName"`
	Category     string  `json:"category"`
}

func (s *Scanner) parse(raw string) *Record {
	clean := cleanModelJSON(raw)

	var w wire
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return s.fallback()
	}

	rec := &Record{
		Amount:       decimal.NewFromFloat(w.Amount),
		Description:  w.Description,
		MerchantName: w.MerchantName,
		Category:     w.Category,
	}
	if rec.Amount.IsNegative() {
		rec.Amount = decimal.Zero
	}
	if date, err := time.Parse("2006-01-02", w.Date); err == nil {
		rec.Date = date
	} else {
		rec.Date = s.now().Truncate(24 * time.Hour)
	}
	if rec.Description == "" {
		rec.Description = "Receipt scan"
	}
	if rec.MerchantName == "" {
		rec.MerchantName = "Unknown"
	}
	if rec.Category == "" {
		rec.Category = "other-expense"
	}
	return rec
}

func (s *Scanner) fallback() *Record {
	return &Record{
		Amount:       decimal.Zero,
		Date:         s.now().Truncate(24 * time.Hour),
		Description:  "Could not parse receipt",
		MerchantName: "Unknown",
		Category:     "other-expense",
	}
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' when the model
	// wrapped the object in extra prose.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
