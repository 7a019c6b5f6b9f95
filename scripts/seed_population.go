// seed_population.go loads a stats export (JSON array or CSV with a header row)
// and ingests it as a population snapshot via the Gridiron API.
//
// Usage:
//
//	go run scripts/seed_population.go -file qbs.csv -season 2024 -kind players -group QB -api http://localhost:8700 -token $GRIDIRON_ADMIN_TOKEN
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func main() {
	path := flag.String("file", "", "path to a .json or .csv stats export")
	season := flag.String("season", "", "season, e.g. 2024")
	kind := flag.String("kind", "players", "teams, players or games")
	group := flag.String("group", "", "optional group, e.g. a position")
	apiURL := flag.String("api", "http://localhost:8700", "Gridiron API base URL")
	token := flag.String("token", os.Getenv("GRIDIRON_ADMIN_TOKEN"), "admin bearer token")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	dryRun := flag.Bool("dry-run", false, "print entities without uploading")
	flag.Parse()

	if *path == "" || *season == "" {
		log.Fatal("-file and -season are required")
	}

	entities, err := readEntities(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}

	if *dryRun {
		for i, e := range entities {
			fmt.Printf("[%d] %v\n", i+1, e)
		}
		return
	}

	body, err := json.Marshal(map[string]interface{}{"entities": entities})
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	endpoint := fmt.Sprintf("%s/api/v1/populations/%s/%s", *apiURL, url.PathEscape(*season), url.PathEscape(*kind))
	if *group != "" {
		endpoint += "?group=" + url.QueryEscape(*group)
	}
	req, err := http.NewRequest("PUT", endpoint, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", *clientID)
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("upload failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var snap snapshotSummary
	_ = json.Unmarshal(respBody, &snap)
	log.Printf("uploaded: snapshot %s with %d entities", snap.SnapshotID, snap.EntityCount)

	// read back through the natural key to confirm what readers will resolve
	stored, err := lookup(endpoint, *clientID)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if stored.SnapshotID != snap.SnapshotID {
		log.Fatalf("lookup resolved snapshot %s, expected %s", stored.SnapshotID, snap.SnapshotID)
	}
	log.Printf("done: %s %s group=%q resolves to snapshot %s (%d entities, updated %s)",
		stored.Season, stored.Kind, stored.Group, stored.SnapshotID, stored.EntityCount, stored.UpdatedAt)
}

type snapshotSummary struct {
	SnapshotID  string `json:"snapshot_id"`
	Season      string `json:"season"`
	Kind        string `json:"kind"`
	Group       string `json:"group"`
	EntityCount int    `json:"entity_count"`
	UpdatedAt   string `json:"updated_at"`
}

// lookup fetches GET /api/v1/populations/{season}/{kind}?group= for the same
// endpoint the upload went to.
func lookup(endpoint, clientID string) (*snapshotSummary, error) {
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Client-ID", clientID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out snapshotSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func readEntities(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSV(f)
	}
	var out []map[string]interface{}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// readCSV keys each row by the header. Cells that parse as numbers are sent as
// numbers; everything else stays a string.
func readCSV(r io.Reader) ([]map[string]interface{}, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("missing header row")
	}
	header := records[0]
	out := make([]map[string]interface{}, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			cell := strings.TrimSpace(rec[i])
			if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				row[col] = f
			} else {
				row[col] = cell
			}
		}
		out = append(out, row)
	}
	return out, nil
}
