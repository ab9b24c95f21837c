// ABOUTME: Definitions and handlers for the Odoo tool set.
// ABOUTME: One generic execute tool plus formatted search/read conveniences.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaydesk/odoo-bridge/internal/odoo"
	"github.com/relaydesk/odoo-bridge/internal/session"
)

// defaultTools returns the full tool set in listing order.
func defaultTools() []Tool {
	return []Tool{
		{
			Name: "execute_odoo_method",
			Description: "Execute any Odoo method on any model. Supports search, search_read, " +
				"read, create, write, unlink and arbitrary model methods. The most general " +
				"tool: everything the REST endpoint can do, this can do.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"model": {"type": "string", "description": "Odoo model name, e.g. res.partner"},
					"method": {"type": "string", "description": "Method to execute, e.g. search_read"},
					"domain": {"type": "string", "description": "Search domain as a JSON list, e.g. [[\"is_company\",\"=\",true]]"},
					"fields": {"type": "string", "description": "Comma-separated field names"},
					"limit": {"type": "integer", "description": "Maximum number of records for search-like methods"},
					"ids": {"type": "string", "description": "Comma-separated record ids for read/write/unlink"},
					"values": {"type": "string", "description": "JSON object of field values for create/write"},
					"args": {"type": "string", "description": "Pre-built positional arguments for other methods"},
					"kwargs": {"type": "string", "description": "Pre-built keyword arguments for other methods"}
				},
				"required": ["model", "method"]
			}`),
			Run: runExecuteMethod,
		},
		{
			Name:        "search_partners",
			Description: "Search for partners (contacts and companies) in Odoo by name.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Name to search for"},
					"limit": {"type": "integer", "description": "Maximum number of results"}
				}
			}`),
			Run: runSearchPartners,
		},
		{
			Name:        "search_products",
			Description: "Search for products in Odoo by name.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Name to search for"},
					"limit": {"type": "integer", "description": "Maximum number of results"}
				}
			}`),
			Run: runSearchProducts,
		},
		{
			Name:        "search_invoices",
			Description: "Search for invoices in Odoo, optionally filtered by partner name.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"partner_name": {"type": "string", "description": "Partner name to filter by"},
					"limit": {"type": "integer", "description": "Maximum number of results"}
				}
			}`),
			Run: runSearchInvoices,
		},
		{
			Name:        "get_partner_details",
			Description: "Get detailed information about a specific partner by id.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"partner_id": {"type": "integer", "description": "ID of the partner"}
				},
				"required": ["partner_id"]
			}`),
			Run: runGetPartnerDetails,
		},
	}
}

// runExecuteMethod is the generic tool: translate the request shape and
// relay the raw result as indented JSON.
func runExecuteMethod(ctx context.Context, client session.RemoteClient, rawArgs json.RawMessage) (string, error) {
	var req odoo.CallRequest
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &req); err != nil {
			return "", &odoo.ValidationError{Field: "arguments", Msg: "malformed JSON"}
		}
	}

	args, kwargs, err := odoo.BuildArgs(req)
	if err != nil {
		return "", err
	}

	result, err := client.Execute(ctx, req.Model, req.Method, args, kwargs)
	if err != nil {
		return "", err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		return string(result), nil
	}
	return pretty.String(), nil
}

// searchArgs is the shared shape of the convenience search tools.
type searchArgs struct {
	Name        string `json:"name"`
	PartnerName string `json:"partner_name"`
	Limit       int    `json:"limit"`
}

func decodeSearchArgs(rawArgs json.RawMessage) searchArgs {
	args := searchArgs{Limit: odoo.DefaultSearchLimit}
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Limit <= 0 {
		args.Limit = odoo.DefaultSearchLimit
	}
	return args
}

// nameDomain builds an ilike domain on the given field when the value is
// non-empty; otherwise the domain matches everything.
func nameDomain(field, value string) []any {
	if value == "" {
		return []any{}
	}
	return []any{[]any{field, "ilike", value}}
}

func runSearchPartners(ctx context.Context, client session.RemoteClient, rawArgs json.RawMessage) (string, error) {
	args := decodeSearchArgs(rawArgs)

	records := client.SearchRead(ctx, "res.partner",
		nameDomain("name", args.Name),
		[]string{"name", "email", "phone", "is_company"},
		args.Limit,
	)
	if len(records) == 0 {
		return "No partners found.", nil
	}

	var entries []string
	for _, rec := range records {
		kind := "Individual"
		if isCompany, _ := rec["is_company"].(bool); isCompany {
			kind = "Company"
		}
		entries = append(entries, fmt.Sprintf(
			"Name: %s\nEmail: %s\nPhone: %s\nType: %s",
			fieldString(rec, "name"), fieldString(rec, "email"), fieldString(rec, "phone"), kind,
		))
	}
	return fmt.Sprintf("Partners found (%d):\n%s", len(entries), strings.Join(entries, "\n---\n")), nil
}

func runSearchProducts(ctx context.Context, client session.RemoteClient, rawArgs json.RawMessage) (string, error) {
	args := decodeSearchArgs(rawArgs)

	records := client.SearchRead(ctx, "product.product",
		nameDomain("name", args.Name),
		[]string{"name", "list_price", "default_code", "type"},
		args.Limit,
	)
	if len(records) == 0 {
		return "No products found.", nil
	}

	var entries []string
	for _, rec := range records {
		entries = append(entries, fmt.Sprintf(
			"Name: %s\nCode: %s\nPrice: %v\nType: %s",
			fieldString(rec, "name"), fieldString(rec, "default_code"), rec["list_price"], fieldString(rec, "type"),
		))
	}
	return fmt.Sprintf("Products found (%d):\n%s", len(entries), strings.Join(entries, "\n---\n")), nil
}

func runSearchInvoices(ctx context.Context, client session.RemoteClient, rawArgs json.RawMessage) (string, error) {
	args := decodeSearchArgs(rawArgs)

	records := client.SearchRead(ctx, "account.move",
		nameDomain("partner_id.name", args.PartnerName),
		[]string{"name", "partner_id", "amount_total", "state", "invoice_date"},
		args.Limit,
	)
	if len(records) == 0 {
		return "No invoices found.", nil
	}

	var entries []string
	for _, rec := range records {
		entries = append(entries, fmt.Sprintf(
			"Number: %s\nPartner: %s\nTotal: %v\nState: %s\nDate: %s",
			fieldString(rec, "name"), relationName(rec["partner_id"]), rec["amount_total"],
			fieldString(rec, "state"), fieldString(rec, "invoice_date"),
		))
	}
	return fmt.Sprintf("Invoices found (%d):\n%s", len(entries), strings.Join(entries, "\n---\n")), nil
}

func runGetPartnerDetails(ctx context.Context, client session.RemoteClient, rawArgs json.RawMessage) (string, error) {
	var args struct {
		PartnerID int64 `json:"partner_id"`
	}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return "", &odoo.ValidationError{Field: "partner_id", Msg: "must be an integer"}
		}
	}
	if args.PartnerID == 0 {
		return "", &odoo.ValidationError{Field: "partner_id", Msg: "required"}
	}

	partner := client.ReadOne(ctx, "res.partner", args.PartnerID,
		[]string{"name", "email", "phone", "street", "city", "zip", "country_id", "vat", "website"},
	)
	if partner == nil {
		return fmt.Sprintf("No partner found with id %d.", args.PartnerID), nil
	}

	return fmt.Sprintf(
		"Partner details (id %d):\nName: %s\nEmail: %s\nPhone: %s\nAddress: %s, %s %s (%s)\nVAT: %s\nWebsite: %s",
		args.PartnerID,
		fieldString(partner, "name"),
		fieldString(partner, "email"),
		fieldString(partner, "phone"),
		fieldString(partner, "street"),
		fieldString(partner, "zip"),
		fieldString(partner, "city"),
		relationName(partner["country_id"]),
		fieldString(partner, "vat"),
		fieldString(partner, "website"),
	), nil
}

// fieldString renders a record field for display. Odoo returns false for
// unset fields, which should read as N/A rather than "false".
func fieldString(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case string:
		if v == "" {
			return "N/A"
		}
		return v
	case nil, bool:
		return "N/A"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// relationName extracts the display name from an Odoo many2one value,
// which arrives as a [id, name] pair.
func relationName(v any) string {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return "N/A"
	}
	name, ok := pair[1].(string)
	if !ok || name == "" {
		return "N/A"
	}
	return name
}
