package types

type KioskHeartbeatRequest struct {
	KioskDeviceID   string `json:"kioskDeviceId"`
	AppVersion      string `json:"appVersion,omitempty"`
	ReaderConnected *bool  `json:"readerConnected,omitempty"`
	CameraReady     *bool  `json:"cameraReady,omitempty"`
}

type KioskHeartbeatResponse struct {
	OK            bool   `json:"ok"`
	Known         bool   `json:"known"`
	KioskDeviceID string `json:"kioskDeviceId"`
	ServerTime    string `json:"serverTime"`
}
