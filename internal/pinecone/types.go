package pinecone

// ChunkMetadata is the metadata stored alongside every vector. Text is
// truncated by the pipeline before upsert; the other fields attribute the
// chunk to its source document.
type ChunkMetadata struct {
	Text     string `json:"text,omitempty"`
	FileID   string `json:"fileId,omitempty"`
	Title    string `json:"title,omitempty"`
	Type     string `json:"type,omitempty"`
	Embedder string `json:"embedder,omitempty"`
}

// Vector is one upsertable record. ID is derived from the source document id
// and chunk index, so re-upserting identical content overwrites rather than
// duplicates.
type Vector struct {
	ID       string        `json:"id"`
	Values   []float32     `json:"values"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Match is one nearest-neighbor result.
type Match struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexStats is the subset of describe_index_stats the pipeline reads.
type IndexStats struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

// IndexDescription describes one index on the control plane.
type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type listIndexesResponse struct {
	Indexes []IndexDescription `json:"indexes"`
}

type createIndexRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

type fetchResponse struct {
	Vectors map[string]Vector `json:"vectors"`
}
