package similarity

import (
	"math"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
)

const (
	LanguagesField = "languages"
	VariablesField = "variables"
)

// Aggregate collapses every developer's per-repository signals into a single
// feature vector. Languages and variables share one feature namespace, so a
// name present in both categories adds up into one count. Every developer in
// the input gets an entry, even with no repositories. The input is not modified.
func Aggregate(activity Activity) (*Features, error) {
	features := &Features{
		ids:     make([]string, 0, len(activity)),
		vectors: make(map[string]FeatureVector, len(activity)),
	}

	for _, dev := range activity {
		if _, dup := features.vectors[dev.ID]; dup {
			return nil, apperrors.NewInputShapeError(dev.ID, "", "", "duplicate developer identifier")
		}

		acc := make(FeatureVector)
		for _, repo := range dev.Repositories {
			combined, err := combineSignal(dev.ID, repo)
			if err != nil {
				return nil, err
			}
			if err := mergeAdd(acc, combined, dev.ID, repo.Name); err != nil {
				return nil, err
			}
		}

		features.ids = append(features.ids, dev.ID)
		features.vectors[dev.ID] = acc
	}

	return features, nil
}

// combineSignal merges the two categories of one repository signal.
func combineSignal(developer string, repo RepositorySignal) (FeatureVector, error) {
	if repo.Languages == nil {
		return nil, apperrors.NewInputShapeError(developer, repo.Name, LanguagesField, "field is missing")
	}
	if repo.Variables == nil {
		return nil, apperrors.NewInputShapeError(developer, repo.Name, VariablesField, "field is missing")
	}

	combined := make(FeatureVector, len(repo.Languages)+len(repo.Variables))
	if err := addCounts(combined, developer, repo.Name, LanguagesField, repo.Languages); err != nil {
		return nil, err
	}
	if err := addCounts(combined, developer, repo.Name, VariablesField, repo.Variables); err != nil {
		return nil, err
	}
	return combined, nil
}

func addCounts(dst FeatureVector, developer, repo, field string, counts map[string]int) error {
	for name, n := range counts {
		if n < 0 {
			return apperrors.NewInputShapeError(developer, repo, field, "negative count for feature "+name)
		}
		if dst[name] > math.MaxInt-n {
			return apperrors.NewInputShapeError(developer, repo, field, "count overflow for feature "+name)
		}
		dst[name] += n
	}
	return nil
}

// mergeAdd adds src into dst element-wise. src counts are non-negative.
func mergeAdd(dst, src FeatureVector, developer, repo string) error {
	for name, n := range src {
		if dst[name] > math.MaxInt-n {
			return apperrors.NewInputShapeError(developer, repo, "", "count overflow for feature "+name)
		}
		dst[name] += n
	}
	return nil
}
