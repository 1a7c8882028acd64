package api

// Manifest is the root of an upload manifest. It lists every file
// uploaded for any site; discovery selects the uploads of one run.
type Manifest struct {
	// Version of the manifest format.
	Version string `json:"version"`
	// Uploads known to the combiner, in no particular order.
	Uploads []Upload `json:"uploads"`
}

// Upload describes one uploaded file and the interval it covers.
type Upload struct {
	Site       string `json:"site"`
	Resolution string `json:"resolution"` // HH or HR
	// File is relative to the directory holding the manifest.
	File string `json:"file"`
	// Start and End are YYYYMMDDHHMM stamps; End is exclusive.
	Start string `json:"start"`
	End   string `json:"end"`
	// UploadKey orders uploads by recency. Numeric keys must be
	// non-negative; they are zero-padded to 20 digits so they order
	// numerically. Keys of one site should not mix numbers and strings.
	UploadKey      string `json:"upload_key"`
	ProcessID      string `json:"process_id,omitempty"`
	OriginalName   string `json:"original_name,omitempty"`
	PriorProcessID string `json:"prior_process_id,omitempty"`
	// Status is passed through to the outcome sink untouched.
	Status map[string]any `json:"status,omitempty"`
}

// DefaultSelector selects every upload of a manifest.
const DefaultSelector = "$.uploads[*]"
