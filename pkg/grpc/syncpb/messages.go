package syncpb

type SyncPopularRequest struct {
	Kind string `json:"kind"`
	Page int32  `json:"page"`
}

func (x *SyncPopularRequest) GetKind() string {
	if x == nil {
		return ""
	}
	return x.Kind
}

func (x *SyncPopularRequest) GetPage() int32 {
	if x == nil {
		return 0
	}
	return x.Page
}

type SyncByYearRequest struct {
	Kind string `json:"kind"`
	Year int32  `json:"year"`
	Page int32  `json:"page"`
}

func (x *SyncByYearRequest) GetKind() string {
	if x == nil {
		return ""
	}
	return x.Kind
}

func (x *SyncByYearRequest) GetYear() int32 {
	if x == nil {
		return 0
	}
	return x.Year
}

func (x *SyncByYearRequest) GetPage() int32 {
	if x == nil {
		return 0
	}
	return x.Page
}

type EpisodeCounts struct {
	Added       int32 `json:"added"`
	Updated     int32 `json:"updated"`
	Unavailable int32 `json:"unavailable"`
	Errors      int32 `json:"errors"`
}

type SyncResult struct {
	Kind         string         `json:"kind"`
	Page         int32          `json:"page"`
	Year         int32          `json:"year,omitempty"`
	Added        int32          `json:"added"`
	Updated      int32          `json:"updated"`
	Unavailable  int32          `json:"unavailable"`
	NoExternalId int32          `json:"no_external_id"`
	Errors       int32          `json:"errors"`
	Total        int32          `json:"total"`
	FromCache    bool           `json:"from_cache"`
	Episodes     *EpisodeCounts `json:"episodes,omitempty"`
}

type SyncResponse struct {
	Result *SyncResult `json:"result"`
}

func (x *SyncResponse) GetResult() *SyncResult {
	if x == nil {
		return nil
	}
	return x.Result
}

type RefreshRequest struct {
	Pages int32 `json:"pages"`
}

func (x *RefreshRequest) GetPages() int32 {
	if x == nil {
		return 0
	}
	return x.Pages
}

// RefreshResponse carries partial counts even when some pages failed; Error
// is then non-empty.
type RefreshResponse struct {
	Pages   int32       `json:"pages"`
	Movies  *SyncResult `json:"movies"`
	TvShows *SyncResult `json:"tv_shows"`
	Error   string      `json:"error,omitempty"`
}

type BulkImportRequest struct {
	Kind      string `json:"kind"`
	StartYear int32  `json:"start_year"`
	EndYear   int32  `json:"end_year"`
	Confirm   bool   `json:"confirm"`
}

func (x *BulkImportRequest) GetKind() string {
	if x == nil {
		return ""
	}
	return x.Kind
}

type ImportProgress struct {
	RunId            string `json:"run_id"`
	Kind             string `json:"kind"`
	StartYear        int32  `json:"start_year"`
	EndYear          int32  `json:"end_year"`
	CurrentYear      int32  `json:"current_year"`
	TotalYears       int32  `json:"total_years"`
	YearsDone        int32  `json:"years_done"`
	ProcessedCount   int32  `json:"processed_count"`
	UpdatedCount     int32  `json:"updated_count"`
	UnavailableCount int32  `json:"unavailable_count"`
	ErrorCount       int32  `json:"error_count"`
	ItemErrorCount   int32  `json:"item_error_count"`
	IsRunning        bool   `json:"is_running"`
	LastError        string `json:"last_error,omitempty"`
	StartedAtUnix    int64  `json:"started_at_unix"`
	FinishedAtUnix   int64  `json:"finished_at_unix,omitempty"`
}
