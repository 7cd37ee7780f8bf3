package diag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ifpusa/p21-tools/internal/api"
	"github.com/ifpusa/p21-tools/internal/config"
	"github.com/ifpusa/p21-tools/internal/transaction"
)

// sessionHeaderMarkers pick out response headers worth recording: anything
// hinting at which pooled session or server instance handled the request.
var sessionHeaderMarkers = []string{"session", "x-p21", "server", "instance"}

// TransactionProber probes the synchronous Transaction API endpoint with a
// disposable price-page create. Price pages are the standard safe write:
// they can be expired afterwards without touching live data.
type TransactionProber struct {
	client *api.Client
	probe  config.ProbeConfig
	now    func() time.Time
}

// NewTransactionProber creates a prober on a uiserver-rooted api.Client.
// The client must not retry: the diagnostic measures raw failures.
func NewTransactionProber(client *api.Client, probe config.ProbeConfig) *TransactionProber {
	return &TransactionProber{
		client: client,
		probe:  probe,
		now:    time.Now,
	}
}

// BuildProbeSet builds the probe payload. The description embeds a
// timestamp so repeated probes create distinct records.
func BuildProbeSet(probe config.ProbeConfig, now time.Time) *transaction.Set {
	description := "SESSION-TEST-" + now.Format("150405.000000")
	description = strings.ReplaceAll(description, ".", "")

	return &transaction.Set{
		Name:          "SalesPricePage",
		UseCodeValues: false,
		Transactions: []transaction.Transaction{
			{
				Status: "New",
				DataElements: []transaction.DataElement{
					transaction.FormElement("FORM.form", transaction.NewRow(
						transaction.Edit{Name: "price_page_type_cd", Value: "Supplier / Product Group"},
						transaction.Edit{Name: "company_id", Value: probe.CompanyID},
						transaction.Edit{Name: "supplier_id", Value: probe.SupplierID},
						transaction.Edit{Name: "product_group_id", Value: probe.ProductGroupID},
						transaction.Edit{Name: "description", Value: description},
						transaction.Edit{Name: "pricing_method_cd", Value: "Source"},
						transaction.Edit{Name: "source_price_cd", Value: "Supplier List Price"},
						transaction.Edit{Name: "effective_date", Value: now.Format("2006-01-02")},
						transaction.Edit{Name: "expiration_date", Value: "2030-12-31"},
						transaction.Edit{Name: "totaling_method_cd", Value: "Item"},
						transaction.Edit{Name: "totaling_basis_cd", Value: "Supplier List Price"},
						transaction.Edit{Name: "row_status_flag", Value: "Active"},
					)),
					transaction.FormElement("VALUES.values", transaction.NewRow(
						transaction.Edit{Name: "calculation_method_cd", Value: "Multiplier"},
						transaction.Edit{Name: "calculation_value1", Value: strconv.FormatFloat(probe.Multiplier, 'f', -1, 64)},
					)),
				},
			},
		},
	}
}

// Probe submits one probe transaction and classifies the outcome.
func (p *TransactionProber) Probe(ctx context.Context) Outcome {
	set := BuildProbeSet(p.probe, p.now())

	body, headers, err := p.client.PostRaw(ctx, "/api/v2/transaction", set)
	if err != nil {
		return classifyError(err, headers)
	}

	var result transaction.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Outcome{
			StatusCode:     http.StatusOK,
			ErrorType:      ErrTypeHTTP,
			ErrorMessage:   truncate("unparseable response: "+string(body), 200),
			SessionHeaders: captureSessionHeaders(headers),
		}
	}

	if result.OK() {
		return Outcome{
			Success:        true,
			StatusCode:     http.StatusOK,
			Preview:        fmt.Sprintf("Succeeded: %d", result.Summary.Succeeded),
			SessionHeaders: captureSessionHeaders(headers),
		}
	}

	// HTTP 200 but the server rejected the transaction.
	return Outcome{
		StatusCode:     http.StatusOK,
		ErrorType:      ErrTypeValidation,
		ErrorMessage:   truncate(result.FirstMessage(), 200),
		Preview:        fmt.Sprintf("Failed: %d, Messages: %d", result.Summary.Failed, len(result.Messages)),
		SessionHeaders: captureSessionHeaders(headers),
	}
}

func classifyError(err error, headers http.Header) Outcome {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		errType := ErrTypeHTTP
		if apiErr.IsContaminated() {
			errType = ErrTypeUnexpectedWindow
		}
		return Outcome{
			StatusCode:     apiErr.StatusCode,
			ErrorType:      errType,
			ErrorMessage:   truncate(string(apiErr.Body), 200),
			Preview:        truncate(string(apiErr.Body), 100),
			SessionHeaders: captureSessionHeaders(headers),
		}
	}

	return Outcome{
		ErrorType:    ErrTypeTransport,
		ErrorMessage: truncate(err.Error(), 200),
	}
}

func captureSessionHeaders(headers http.Header) map[string]string {
	if headers == nil {
		return nil
	}

	captured := map[string]string{}
	for name, values := range headers {
		lower := strings.ToLower(name)
		for _, marker := range sessionHeaderMarkers {
			if strings.Contains(lower, marker) && len(values) > 0 {
				captured[name] = values[0]
				break
			}
		}
	}

	if len(captured) == 0 {
		return nil
	}
	return captured
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
