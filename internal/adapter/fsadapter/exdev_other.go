//go:build !unix

package fsadapter

func isEXDEV(err error) bool {
	return false
}
