package classifier

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Record is the persisted outcome of one fit
type Record struct {
	Params      Params `json:"params"`
	ScoresTrain Scores `json:"scores_train"`
	ScoresTest  Scores `json:"scores_test"`
}

// Result is one line of a results file
type Result struct {
	Hash string
	Record
}

// ResultsPath is the results file of a classifier type under dir
func ResultsPath(dir, modelType string) string {
	return filepath.Join(dir, modelType+".txt")
}

// SaveResults appends [hash, record] as one JSON line to the results file
// of the classifier type. Before fitting or test scoring it logs a warning
// and writes nothing; saved reports which happened.
func (c *Classifier) SaveResults(dir string) (saved bool, err error) {
	if !c.fitted {
		c.log.Warn("Model must be fitted first, skipping.")
		return false, nil
	}
	if c.ScoresTest == nil {
		c.log.Warn("Model must be scored on test data first, skipping.")
		return false, nil
	}
	hash, err := c.Hash()
	if err != nil {
		return false, err
	}
	line, err := json.Marshal([]interface{}{hash, Record{
		Params:      c.Params,
		ScoresTrain: c.ScoresTrain,
		ScoresTest:  c.ScoresTest,
	}})
	if err != nil {
		return false, fmt.Errorf("encode results: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create results dir: %w", err)
	}
	path := ResultsPath(dir, c.Type)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return false, fmt.Errorf("write results file: %w", err)
	}
	c.log.WithField("hash", hash).Infof("Results appended to %s", path)
	return true, nil
}

// LoadResults reads every line of a results file. A missing file holds no
// results.
func LoadResults(dir, modelType string) ([]Result, error) {
	f, err := os.Open(ResultsPath(dir, modelType))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []Result
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var pair []json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("results line %d: malformed entry", n)
		}
		var r Result
		if err := json.Unmarshal(pair[0], &r.Hash); err != nil {
			return nil, fmt.Errorf("results line %d: %w", n, err)
		}
		if err := json.Unmarshal(pair[1], &r.Record); err != nil {
			return nil, fmt.Errorf("results line %d: %w", n, err)
		}
		results = append(results, r)
	}
	return results, scanner.Err()
}

// HasRun reports whether a result with hash exists
func HasRun(results []Result, hash string) bool {
	for _, r := range results {
		if r.Hash == hash {
			return true
		}
	}
	return false
}

// Rank orders results by a test score, best first. Results missing the
// score are dropped.
func Rank(results []Result, score string) []Result {
	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if _, ok := r.ScoresTest[score]; ok {
			ranked = append(ranked, r)
		}
	}
	lower := LowerIsBetter(score)
	sort.SliceStable(ranked, func(a, b int) bool {
		x, y := ranked[a].ScoresTest[score], ranked[b].ScoresTest[score]
		if lower {
			return x < y
		}
		return x > y
	})
	return ranked
}

// Best returns the result with the best test score
func Best(results []Result, score string) (Result, bool) {
	ranked := Rank(results, score)
	if len(ranked) == 0 {
		return Result{}, false
	}
	return ranked[0], true
}
