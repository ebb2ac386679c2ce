package blast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const maxReportContent = 30000

var (
	ridPattern       = regexp.MustCompile(`RID = (\w+)`)
	qblastPattern    = regexp.MustCompile(`(?s)QBlastInfoBegin\s*Message=(.*)\s*QBlastInfoEnd`)
	statusPattern    = regexp.MustCompile(`Status=(\w+)`)
	messagePattern   = regexp.MustCompile(`Message=(.*)`)
	pendingStatuses  = []string{"WAITING", "SEARCHING"}
	failedStatuses   = []string{"FAILED", "UNKNOWN"}
	programs         = []string{"blastn", "blastp", "blastx", "tblastn", "tblastx"}
	blastDatabases   = []string{"nt", "nr", "refseq_rna", "refseq_protein", "swissprot", "pdb"}
	stillWaitingBody = map[string]string{"status": "WAITING", "message": "BLAST job is still processing. Try again later."}
)

type putArgs struct {
	Sequence    string `json:"sequence"`
	Program     string `json:"program"`
	Database    string `json:"database"`
	Megablast   bool   `json:"megablast"`
	HitlistSize int    `json:"hitlist_size"`
}

type getArgs struct {
	RID        string `json:"rid"`
	FormatType string `json:"format_type"`
}

func defaultPutArgs() putArgs {
	return putArgs{Program: "blastn", Database: "nt", Megablast: true, HitlistSize: 10}
}

func defaultGetArgs() getArgs {
	return getArgs{FormatType: "Text"}
}

// Tools returns blast_put, gated per call by the dispatcher, and blast_get,
// which gates its own polls through c.Limiter.
func (c *Client) Tools() []ports.Tool {
	return []ports.Tool{
		ports.NewTool(PutSpec(), defaultPutArgs, c.put),
		ports.NewTool(GetSpec(), defaultGetArgs, c.get),
	}
}

func PutSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolBlastPut,
		Description: "Submits a sequence to NCBI BLAST. Returns a Request ID (RID) for polling results.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"sequence":     {Type: jsonschema.String, Description: "The DNA or protein sequence to BLAST."},
				"program":      {Type: jsonschema.String, Enum: programs, Description: "BLAST program. Common choices: 'blastn' (DNA-DNA), 'blastp' (protein-protein). Defaults to 'blastn'."},
				"database":     {Type: jsonschema.String, Enum: blastDatabases, Description: "BLAST database. Common choices: 'nt' (nucleotide), 'nr' (non-redundant protein). Defaults to 'nt'."},
				"megablast":    {Type: jsonschema.Boolean, Description: "Enable MEGABLAST for blastn (for highly similar sequences). Only applicable if program is 'blastn'. Defaults to true."},
				"hitlist_size": {Type: jsonschema.Integer, Description: "Number of aligned sequences to keep. Defaults to 10."},
			},
			Required:             []string{"sequence"},
			AdditionalProperties: false,
		},
		Gate: domain.GateCall,
	}
}

func GetSpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolBlastGet,
		Description: "Retrieves BLAST results using a Request ID (RID). Important: This tool internally waits about 30 seconds before attempting to fetch results.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"rid":         {Type: jsonschema.String, Description: "The Request ID (RID) obtained from blast_put."},
				"format_type": {Type: jsonschema.String, Description: "Desired format of the results (e.g., 'Text', 'XML', 'JSON'). Defaults to 'Text'."},
			},
			Required:             []string{"rid"},
			AdditionalProperties: false,
		},
		Gate: domain.GateSelf,
	}
}

func (c *Client) put(ctx context.Context, args putArgs) (string, error) {
	if strings.TrimSpace(args.Sequence) == "" {
		return "", errors.New("sequence is required")
	}
	if args.HitlistSize <= 0 {
		args.HitlistSize = 10
	}

	values := url.Values{}
	values.Set("CMD", "Put")
	values.Set("PROGRAM", args.Program)
	values.Set("DATABASE", args.Database)
	values.Set("QUERY", args.Sequence)
	values.Set("HITLIST_SIZE", strconv.Itoa(args.HitlistSize))
	if args.Program == "blastn" && args.Megablast {
		values.Set("MEGABLAST", "on")
	}

	body, err := c.do(ctx, http.MethodPost, values, putTimeout)
	if err != nil {
		return "", err
	}

	if match := ridPattern.FindStringSubmatch(body); match != nil {
		c.logger().Info("blast job submitted", slog.String("rid", match[1]), slog.String("program", args.Program))
		return encode(map[string]string{"rid": match[1]})
	}
	if match := qblastPattern.FindStringSubmatch(body); match != nil {
		return "", fmt.Errorf("NCBI BLAST Error: %s", strings.TrimSpace(match[1]))
	}
	return "", errors.New("could not parse RID from BLAST response")
}

// get waits InitialWait, then polls up to 1+MaxRetries times. Each poll
// holds one limiter permit; the waits hold none.
func (c *Client) get(ctx context.Context, args getArgs) (string, error) {
	if strings.TrimSpace(args.RID) == "" {
		return "", errors.New("rid is required")
	}
	if args.FormatType == "" {
		args.FormatType = "Text"
	}

	values := url.Values{}
	values.Set("CMD", "Get")
	values.Set("RID", args.RID)
	values.Set("FORMAT_TYPE", args.FormatType)

	if err := c.Clock.Sleep(ctx, c.Policy.InitialWait); err != nil {
		return "", fmt.Errorf("wait for blast job %s: %w", args.RID, err)
	}

	for attempt := 0; ; attempt++ {
		body, err := c.limited(ctx, func(ctx context.Context) (string, error) {
			return c.do(ctx, http.MethodGet, values, getTimeout)
		})
		if err != nil {
			return "", err
		}

		status := jobStatus(body)
		switch {
		case slices.Contains(pendingStatuses, status):
			if attempt >= c.Policy.MaxRetries {
				c.logger().Info("blast job still running", slog.String("rid", args.RID), slog.Int("polls", attempt+1))
				return encode(stillWaitingBody)
			}
			if err := c.Clock.Sleep(ctx, c.Policy.RetryWait); err != nil {
				return "", fmt.Errorf("wait for blast job %s: %w", args.RID, err)
			}
		case slices.Contains(failedStatuses, status):
			message := fmt.Sprintf("BLAST job for RID %s failed or status is unknown.", args.RID)
			if match := messagePattern.FindStringSubmatch(body); match != nil {
				message += " NCBI Message: " + strings.TrimSpace(match[1])
			}
			return "", errors.New(message)
		default:
			c.logger().Info("blast report ready", slog.String("rid", args.RID), slog.Int("bytes", len(body)))
			return encode(map[string]string{"report": truncate(body, maxReportContent)})
		}
	}
}

func jobStatus(body string) string {
	if match := statusPattern.FindStringSubmatch(body); match != nil {
		return match[1]
	}
	return ""
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func encode(value any) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(payload), nil
}
