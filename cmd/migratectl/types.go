package main

// migrationInfo mirrors the server's migration record response.
type migrationInfo struct {
	ID           string `json:"id"`
	Environment  string `json:"environment"`
	Interface    string `json:"interface"`
	Filename     string `json:"filename"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	BatchNumber  string `json:"batchNumber"`
	ErrorMessage string `json:"errorMessage"`
	CreatedAt    string `json:"createdAt"`
}

type migrationListResponse struct {
	Migrations    []migrationInfo `json:"migrations"`
	NextPageToken string          `json:"nextPageToken"`
	TotalSize     int             `json:"totalSize"`
}

type previewResponse struct {
	RecordID string `json:"recordId"`
	Summary  struct {
		TotalKeys   int `json:"totalKeys"`
		NewKeys     int `json:"newKeys"`
		UpdatedKeys int `json:"updatedKeys"`
		DeletedKeys int `json:"deletedKeys"`
	} `json:"summary"`
	Changes []struct {
		Kind    string            `json:"kind"`
		Key     string            `json:"key"`
		Locales map[string]string `json:"locales"`
	} `json:"changes"`
}

type applyResponse struct {
	RecordID    string `json:"recordId"`
	RowsWritten int    `json:"rowsWritten"`
	KeysApplied int    `json:"keysApplied"`
}

type rollbackResponse struct {
	RecordID     string `json:"recordId"`
	RowsRestored int    `json:"rowsRestored"`
}

type batchResponse struct {
	BatchNumber string `json:"batchNumber"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	Outcomes    []struct {
		RecordID    string `json:"recordId"`
		Succeeded   bool   `json:"succeeded"`
		RowsWritten int    `json:"rowsWritten"`
		Error       string `json:"error"`
	} `json:"outcomes"`
}

type discoverResponse struct {
	Discovery struct {
		Created []migrationInfo `json:"created"`
		Skipped int             `json:"skipped"`
		Ifaces  []struct {
			Interface string `json:"interface"`
			Created   int    `json:"created"`
			Skipped   int    `json:"skipped"`
			Error     string `json:"error"`
		} `json:"interfaces"`
	} `json:"discovery"`
	Batch *batchResponse `json:"batch"`
}

type jobInfo struct {
	ID               string `json:"id"`
	Environment      string `json:"environment"`
	Operation        string `json:"operation"`
	RecordID         string `json:"recordId"`
	State            string `json:"state"`
	RequestedBy      string `json:"requestedBy"`
	RequestedAt      string `json:"requestedAt"`
	LastError        string `json:"lastError"`
	RowsWritten      int    `json:"rowsWritten"`
	RecordsSucceeded int    `json:"recordsSucceeded"`
	RecordsFailed    int    `json:"recordsFailed"`
}

type jobListResponse struct {
	Jobs          []jobInfo `json:"jobs"`
	NextPageToken string    `json:"nextPageToken"`
}

type enqueuedJob struct {
	JobID     string `json:"jobId"`
	State     string `json:"state"`
	Operation string `json:"operation"`
}

type auditEventInfo struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	Actor     string `json:"actor"`
	RecordID  string `json:"recordId"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type auditListResponse struct {
	Events        []auditEventInfo `json:"events"`
	NextPageToken string           `json:"nextPageToken"`
}
