package similarity

import (
	"sort"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
)

// SimilarDevelopersNumber is how many developers a ranking returns at most.
const SimilarDevelopersNumber = 15

// FindSimilarDevelopers ranks every other developer in activity by cosine
// similarity to query and returns the top SimilarDevelopersNumber, highest
// first. Equal scores keep their input order. A population holding only the
// query developer yields an empty result.
func FindSimilarDevelopers(query string, activity Activity) (Result, error) {
	features, err := Aggregate(activity)
	if err != nil {
		return nil, err
	}

	return RankFeatures(query, features)
}

// RankFeatures runs the ranking steps on already aggregated features.
func RankFeatures(query string, features *Features) (Result, error) {
	matrix := BuildMatrix(features)

	queryRow, ok := matrix.Row(query)
	if !ok {
		return nil, apperrors.NewDeveloperNotFoundError(query)
	}
	queryNorm := norm(queryRow)

	matches := make(Result, 0, matrix.Len())
	for i, id := range matrix.ids {
		if id == query {
			continue
		}
		matches = append(matches, Match{
			Developer: id,
			Score:     cosineWithNorm(queryRow, matrix.rows[i], queryNorm),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > SimilarDevelopersNumber {
		matches = matches[:SimilarDevelopersNumber]
	}

	return matches, nil
}
