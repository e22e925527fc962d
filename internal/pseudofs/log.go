package pseudofs

import "github.com/sirupsen/logrus"

// Field names used consistently across namespace operations' log entries.
const (
	FieldOp    = "op"
	FieldPath  = "path"
	FieldName  = "name"
	FieldInode = "inode"
	FieldBlock = "block"
	FieldSize  = "size"
)

// L is the package logger. The shell sets its level to Warn at startup;
// tests leave it at the default so failures still print somewhere useful.
var L = logrus.StandardLogger()

func opLog(op string) *logrus.Entry {
	return L.WithField(FieldOp, op)
}
