package dto

// RecordLocationRequest is a device position report. Timestamp is epoch
// milliseconds; zero means "now".
type RecordLocationRequest struct {
	DeviceID  string   `json:"deviceId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}
