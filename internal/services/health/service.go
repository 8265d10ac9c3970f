package health

// Service encapsulates health-related checks.
type Service struct {
	storageMode string
	dbMode      string
}

// NewService constructs a new health service.
func NewService(storageMode, dbMode string) *Service {
	return &Service{storageMode: storageMode, dbMode: dbMode}
}

// Status returns a simple health payload.
func (s *Service) Status() map[string]any {
	return map[string]any{
		"status":  "ok",
		"storage": s.storageMode,
		"db":      s.dbMode,
	}
}
