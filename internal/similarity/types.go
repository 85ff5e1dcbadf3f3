package similarity

// RepositorySignal holds the counts observed for one developer in one repository.
// A nil Languages or Variables map means the field was missing from the input;
// an empty non-nil map is a valid, empty category.
type RepositorySignal struct {
	Name      string
	Languages map[string]int
	Variables map[string]int
}

// Developer is a single developer and the repositories they were active in.
type Developer struct {
	ID           string
	Repositories []RepositorySignal
}

// Activity is the developer population in input order. Input order decides
// matrix row order and breaks ties between equal similarity scores.
type Activity []Developer

// FeatureVector maps a feature name (language or variable token) to its count.
type FeatureVector map[string]int

// Features is the aggregated feature vector of every developer, in input order.
type Features struct {
	ids     []string
	vectors map[string]FeatureVector
}

// IDs returns the developer identifiers in input order.
func (f *Features) IDs() []string {
	return append([]string(nil), f.ids...)
}

// Vector returns the feature vector for a developer.
func (f *Features) Vector(id string) (FeatureVector, bool) {
	v, ok := f.vectors[id]
	return v, ok
}

// Len returns the number of developers.
func (f *Features) Len() int {
	return len(f.ids)
}
