package error

// GenericError is implemented by every typed error in this package so the
// REST layer can map failures to a status code without string matching.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}
