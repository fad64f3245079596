package models

// ScanState состояния карточки при AI-сканировании
type ScanState string

const (
	ScanStateIdle     ScanState = "idle"
	ScanStateScanning ScanState = "scanning"
	ScanStateError    ScanState = "error"
)

// CopyTarget что именно копируется в буфер обмена
type CopyTarget string

const (
	CopyTargetFilename CopyTarget = "filename"
	CopyTargetAI       CopyTarget = "ai"
)

// Valid проверяет, что цель копирования известна.
func (t CopyTarget) Valid() bool {
	return t == CopyTargetFilename || t == CopyTargetAI
}
