package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"covimpact/internal/analyzer"
	"covimpact/internal/prioritize"
)

// Format selects the rendering of a result.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHuman Format = "human"
)

// Render writes a result in the requested format. Top-N truncation
// happens here, on the reporting side; the pipeline always produces the
// full list.
func Render(w io.Writer, result *analyzer.Result, format Format, topN int) error {
	entries := result.Entries
	if topN > 0 && topN < len(entries) {
		entries = entries[:topN]
	}

	switch format {
	case FormatJSON:
		return renderJSON(w, result, entries)
	default:
		return renderHuman(w, result, entries)
	}
}

// renderJSON emits canonical JSON: fixed key order, floats rounded to 6
// decimals, empty sections omitted.
func renderJSON(w io.Writer, result *analyzer.Result, entries []prioritize.Entry) error {
	doc := orderedDoc{}
	doc.add("entries", encodeEntries(entries))
	if len(result.Diagnostics) > 0 {
		diags := make([]orderedDoc, len(result.Diagnostics))
		for i, d := range result.Diagnostics {
			dd := orderedDoc{}
			if d.Path != "" {
				dd.add("path", d.Path)
			}
			dd.add("reason", d.Reason)
			dd.add("code", string(d.Code))
			diags[i] = dd
		}
		doc.add("diagnostics", diags)
	}

	stats := orderedDoc{}
	stats.add("functions", result.Stats.Functions)
	stats.add("edges", result.Stats.Edges)
	stats.add("unresolvedCalls", result.Stats.UnresolvedCalls)
	stats.add("skippedFiles", result.Stats.SkippedFiles)
	if result.Stats.ModelVersion != "" {
		stats.add("modelVersion", result.Stats.ModelVersion)
	}
	if result.Stats.NeutralFallback {
		stats.add("neutralFallback", true)
	}
	doc.add("stats", stats)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeEntries(entries []prioritize.Entry) []orderedDoc {
	out := make([]orderedDoc, len(entries))
	for i, e := range entries {
		d := orderedDoc{}
		d.add("rank", e.Rank)
		d.add("id", e.ID)
		d.add("priority", RoundFloat(e.Priority))
		d.add("impact", RoundFloat(e.Impact))
		d.add("complexity", RoundFloat(e.Complexity))
		d.add("confidence", RoundFloat(e.Confidence))
		d.add("halfWidth", RoundFloat(e.HalfWidth))
		d.add("effort", RoundFloat(e.Effort))
		if e.Capped {
			d.add("capped", true)
		}
		out[i] = d
	}
	return out
}

// renderHuman emits a readable table plus a stats footer.
func renderHuman(w io.Writer, result *analyzer.Result, entries []prioritize.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPRIORITY\tIMPACT\tCOMPLEXITY\tCONFIDENCE\tFUNCTION")
	for _, e := range entries {
		marker := ""
		if e.Capped {
			marker = " *"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\t%s\t%s\t%s\n",
			e.Rank,
			FormatFloat(e.Priority), marker,
			FormatFloat(e.Impact),
			FormatFloat(e.Complexity),
			FormatFloat(e.Confidence),
			e.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d functions, %d edges, %d unresolved calls, %d skipped files\n",
		result.Stats.Functions, result.Stats.Edges,
		result.Stats.UnresolvedCalls, result.Stats.SkippedFiles)
	if result.Stats.NeutralFallback {
		fmt.Fprintln(w, "warning: complexity model unavailable, neutral fallback in effect")
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintf(w, "diagnostic: %s\n", d.String())
	}
	return nil
}

// orderedDoc is a JSON object that marshals its keys in insertion order.
type orderedDoc struct {
	keys   []string
	values map[string]interface{}
}

func (d *orderedDoc) add(key string, value interface{}) {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// MarshalJSON writes the fields in the order they were added.
func (d orderedDoc) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
