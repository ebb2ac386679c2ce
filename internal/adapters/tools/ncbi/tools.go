package ncbi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const (
	defaultRetMax   = 5
	maxFetchContent = 20000
)

var databases = []string{"gene", "snp", "omim"}

type searchArgs struct {
	Database string `json:"database"`
	Term     string `json:"term"`
	RetMax   int    `json:"retmax"`
}

type summaryArgs struct {
	Database string   `json:"database"`
	UIDs     []string `json:"uids"`
	RetMax   int      `json:"retmax"`
}

type fetchArgs struct {
	Database string   `json:"database"`
	UIDs     []string `json:"uids"`
	RetMode  string   `json:"retmode"`
	RetType  string   `json:"rettype"`
}

// Tools returns esearch, esummary and efetch bound to c. Each holds one
// rate limit permit per call and is safe to cache by arguments.
func (c *Client) Tools() []ports.Tool {
	return []ports.Tool{
		ports.NewTool(SearchSpec(), func() searchArgs { return searchArgs{RetMax: defaultRetMax} }, c.search),
		ports.NewTool(SummarySpec(), func() summaryArgs { return summaryArgs{RetMax: defaultRetMax} }, c.summary),
		ports.NewTool(FetchSpec(), func() fetchArgs { return fetchArgs{RetMode: "text", RetType: "default"} }, c.fetch),
	}
}

func databaseProperty(description string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Enum: databases, Description: description}
}

func uidsProperty() jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
		Description: "A list of NCBI UIDs obtained from esearch_ncbi.",
	}
}

func SearchSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolESearch,
		Description: "Performs a search on NCBI Eutils for a given term in a specified database (gene, snp, omim) and returns a list of UIDs.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"database": databaseProperty("The NCBI database to search. Must be one of 'gene', 'snp', or 'omim'."),
				"term":     {Type: jsonschema.String, Description: "The search term (e.g., 'BRCA1', 'rs12345', 'Alzheimer disease')."},
				"retmax":   {Type: jsonschema.Integer, Description: "Maximum number of UIDs to return. Defaults to 5."},
			},
			Required:             []string{"database", "term"},
			AdditionalProperties: false,
		},
		Gate:      domain.GateCall,
		Cacheable: true,
	}
}

func SummarySpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolESummary,
		Description: "Retrieves summaries for a list of UIDs from a specified NCBI Eutils database (gene, snp, omim). The structure of the summary varies by database.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"database": databaseProperty("The NCBI database. Must be one of 'gene', 'snp', or 'omim'."),
				"uids":     uidsProperty(),
				"retmax":   {Type: jsonschema.Integer, Description: "Maximum number of summaries to return. Defaults to 5."},
			},
			Required:             []string{"database", "uids"},
			AdditionalProperties: false,
		},
		Gate:      domain.GateCall,
		Cacheable: true,
	}
}

func FetchSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolEFetch,
		Description: "Retrieves full records for a list of UIDs from a specified NCBI Eutils database (gene, snp, omim). Can return large text data like FASTA or GenBank formats.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"database": databaseProperty("The NCBI database. Must be one of 'gene', 'snp', or 'omim'."),
				"uids":     uidsProperty(),
				"retmode":  {Type: jsonschema.String, Description: "Retrieval mode (e.g., 'text', 'xml'; 'json' if available for the db). Defaults to 'text'."},
				"rettype":  {Type: jsonschema.String, Description: "Retrieval type (e.g., 'fasta', 'gb' for nucleotide; varies by db). Defaults to 'default'."},
			},
			Required:             []string{"database", "uids"},
			AdditionalProperties: false,
		},
		Gate:      domain.GateCall,
		Cacheable: true,
	}
}

type searchResponse struct {
	Result struct {
		IDList      []string `json:"idlist"`
		WarningList struct {
			PhrasesNotFound []string `json:"phrasesnotfound"`
		} `json:"warninglist"`
	} `json:"esearchresult"`
}

// search returns {"uids": [...]}. An empty match is reported in-band as
// {"error": ..., "uids": []} so the model can rephrase.
func (c *Client) search(ctx context.Context, args searchArgs) (string, error) {
	if args.RetMax <= 0 {
		args.RetMax = defaultRetMax
	}
	params := url.Values{}
	params.Set("db", args.Database)
	params.Set("term", args.Term)
	params.Set("retmax", strconv.Itoa(args.RetMax))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "esearch.fcgi", params, searchTimeout)
	if err != nil {
		return "", err
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode esearch response: %w", err)
	}

	if uids := payload.Result.IDList; len(uids) > 0 {
		c.logger().Info("esearch found uids", slog.String("term", args.Term), slog.Int("count", len(uids)))
		return encode(map[string]any{"uids": uids})
	}

	detail := fmt.Sprintf("No UIDs found for term '%s' in database '%s'.", args.Term, args.Database)
	if missing := payload.Result.WarningList.PhrasesNotFound; len(missing) > 0 {
		detail += " Phrases not found: " + strings.Join(missing, ", ")
	}
	return encode(map[string]any{"error": detail, "uids": []string{}})
}

// summary returns the esummary result object without its "uids" index.
func (c *Client) summary(ctx context.Context, args summaryArgs) (string, error) {
	if len(args.UIDs) == 0 {
		return "", errors.New("no UIDs provided for esummary_ncbi")
	}
	if args.RetMax <= 0 {
		args.RetMax = defaultRetMax
	}
	ids := strings.Join(args.UIDs, ",")
	params := url.Values{}
	params.Set("db", args.Database)
	params.Set("id", ids)
	params.Set("retmax", strconv.Itoa(args.RetMax))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "esummary.fcgi", params, summaryTimeout)
	if err != nil {
		return "", err
	}

	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode esummary response: %w", err)
	}
	if payload.Result == nil {
		return "", fmt.Errorf("no summary found or unexpected format for UIDs %s in %s", ids, args.Database)
	}

	delete(payload.Result, "uids")
	if len(payload.Result) == 0 {
		return "", fmt.Errorf("no results found for UIDs %s in database %s", ids, args.Database)
	}
	return encode(payload.Result)
}

// fetch returns the raw record text wrapped as {"content": ...}.
func (c *Client) fetch(ctx context.Context, args fetchArgs) (string, error) {
	if len(args.UIDs) == 0 {
		return "", errors.New("no UIDs provided for efetch_ncbi")
	}
	if args.RetMode == "" {
		args.RetMode = "text"
	}
	params := url.Values{}
	params.Set("db", args.Database)
	params.Set("id", strings.Join(args.UIDs, ","))
	params.Set("retmode", args.RetMode)
	if args.RetType != "" && args.RetType != "default" {
		params.Set("rettype", args.RetType)
	}

	body, err := c.get(ctx, "efetch.fcgi", params, fetchTimeout)
	if err != nil {
		return "", err
	}
	c.logger().Info("efetch returned content", slog.Int("bytes", len(body)))

	return encode(map[string]string{"content": truncate(string(body), maxFetchContent)})
}

func encode(value any) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(payload), nil
}
