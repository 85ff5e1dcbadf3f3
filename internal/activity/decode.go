// Package activity decodes developer activity documents into the typed
// similarity schema, keeping the document's key order.
package activity

import (
	"fmt"
	"math"
	"strconv"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
	"github.com/tidwall/gjson"
)

// Request is a ranking request: a query developer and the population to rank against.
type Request struct {
	Query    string
	Activity similarity.Activity
}

// Decode parses an activity document of the form
// {developer: {repository: {"languages": {...}, "variables": {...}}}}.
func Decode(data []byte) (similarity.Activity, error) {
	if !gjson.ValidBytes(data) {
		return nil, apperrors.NewInputShapeError("", "", "", "activity document is not valid JSON")
	}
	return decodeActivity(gjson.ParseBytes(data))
}

// DecodeRequest parses {"query": "<developer>", "activity": {...}}.
func DecodeRequest(data []byte) (*Request, error) {
	if !gjson.ValidBytes(data) {
		return nil, apperrors.NewValidationError("request body is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, apperrors.NewValidationError("request body must be a JSON object")
	}

	query := root.Get("query")
	if query.Type != gjson.String || query.String() == "" {
		return nil, apperrors.NewValidationError("query must be a non-empty string")
	}

	doc := root.Get("activity")
	if !doc.Exists() {
		return nil, apperrors.NewValidationError("activity is required")
	}

	act, err := decodeActivity(doc)
	if err != nil {
		return nil, err
	}

	return &Request{Query: query.String(), Activity: act}, nil
}

func decodeActivity(root gjson.Result) (similarity.Activity, error) {
	if !root.IsObject() {
		return nil, apperrors.NewInputShapeError("", "", "", "activity must be a JSON object")
	}

	var (
		act  similarity.Activity
		seen = make(map[string]struct{})
		err  error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		id := key.String()
		if _, dup := seen[id]; dup {
			err = apperrors.NewInputShapeError(id, "", "", "duplicate developer identifier")
			return false
		}
		seen[id] = struct{}{}

		var dev similarity.Developer
		dev, err = decodeDeveloper(id, value)
		if err != nil {
			return false
		}
		act = append(act, dev)
		return true
	})
	if err != nil {
		return nil, err
	}

	if act == nil {
		act = similarity.Activity{}
	}
	return act, nil
}

func decodeDeveloper(id string, value gjson.Result) (similarity.Developer, error) {
	dev := similarity.Developer{ID: id}
	if !value.IsObject() {
		return dev, apperrors.NewInputShapeError(id, "", "", "developer entry must be an object of repositories")
	}

	seen := make(map[string]struct{})
	var err error
	value.ForEach(func(key, repo gjson.Result) bool {
		name := key.String()
		if _, dup := seen[name]; dup {
			err = apperrors.NewInputShapeError(id, name, "", "duplicate repository name")
			return false
		}
		seen[name] = struct{}{}

		var sig similarity.RepositorySignal
		sig, err = decodeSignal(id, name, repo)
		if err != nil {
			return false
		}
		dev.Repositories = append(dev.Repositories, sig)
		return true
	})

	return dev, err
}

func decodeSignal(developer, name string, repo gjson.Result) (similarity.RepositorySignal, error) {
	sig := similarity.RepositorySignal{Name: name}
	if !repo.IsObject() {
		return sig, apperrors.NewInputShapeError(developer, name, "", "repository signal must be an object")
	}

	var err error
	if sig.Languages, err = decodeCounts(developer, name, similarity.LanguagesField, repo.Get(similarity.LanguagesField)); err != nil {
		return sig, err
	}
	if sig.Variables, err = decodeCounts(developer, name, similarity.VariablesField, repo.Get(similarity.VariablesField)); err != nil {
		return sig, err
	}
	return sig, nil
}

// decodeCounts always returns a non-nil map for a present field so that an
// empty category stays distinguishable from a missing one.
func decodeCounts(developer, repo, field string, value gjson.Result) (map[string]int, error) {
	if !value.Exists() {
		return nil, apperrors.NewInputShapeError(developer, repo, field, "field is missing")
	}
	if !value.IsObject() {
		return nil, apperrors.NewInputShapeError(developer, repo, field, "field must be an object of counts")
	}

	counts := make(map[string]int)
	var err error
	value.ForEach(func(key, n gjson.Result) bool {
		f := n.Float()
		if n.Type != gjson.Number || f < 0 || f != math.Trunc(f) {
			err = apperrors.NewInputShapeError(developer, repo, field,
				fmt.Sprintf("count for %q must be a non-negative integer", key.String()))
			return false
		}
		v, ok := countValue(n)
		if !ok || counts[key.String()] > math.MaxInt-v {
			err = apperrors.NewInputShapeError(developer, repo, field,
				fmt.Sprintf("count for %q exceeds the maximum supported value", key.String()))
			return false
		}
		counts[key.String()] += v
		return true
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// countValue converts a non-negative integral JSON number to int, reporting
// false when it does not fit.
func countValue(n gjson.Result) (int, bool) {
	if v, err := strconv.ParseInt(n.Raw, 10, 64); err == nil {
		if uint64(v) > uint64(math.MaxInt) {
			return 0, false
		}
		return int(v), true
	}
	// float64(math.MaxInt64) rounds up to 2^63
	f := n.Float()
	if f >= 1<<63 || f > float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}
