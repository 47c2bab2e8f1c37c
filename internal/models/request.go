package models

type DetailsRequest struct {
	Customer   string `json:"customer"`
	OrderID    string `json:"order_id"`
	ReceivedOn string `json:"received_on"`
	Notes      string `json:"notes,omitempty"`
}

type SampleRequest struct {
	Barcode string `json:"barcode"`
}

type SlideRequest struct {
	Barcode     string `json:"barcode"`
	Annotations bool   `json:"annotations"`
	// ScanTime defaults to "40x Scan".
	ScanTime string `json:"scan_time,omitempty"`
}

// RetryBatchRequest names the samples to batch. When empty, the partial ids
// of the operator's last recoverable failure are used.
type RetryBatchRequest struct {
	SampleIDs []string `json:"sample_ids"`
}
