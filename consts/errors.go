package consts

import "errors"

// ErrorKind identifies a category of failure recorded on a TaskResult.
// The set is fixed; every recorded error carries exactly one kind plus a
// free-form context string.
type ErrorKind string

const (
	KindCreateGroupFailed   ErrorKind = "CreateGroupFailed"
	KindGetObjectFailed     ErrorKind = "GetObjectFailed"
	KindMapObjectFailed     ErrorKind = "MapObjectFailed"
	KindMapObjectBadType    ErrorKind = "MapObjectBadType"
	KindResolveGroupFailed  ErrorKind = "ResolveGroupFailed"
	KindReadAclFailed       ErrorKind = "ReadAclFailed"
	KindSetAclFailed        ErrorKind = "SetAclFailed"
	KindSaveMessageFailed   ErrorKind = "SaveMessageFailed"
	KindDeleteMessageFailed ErrorKind = "DeleteMessageFailed"
	KindWriteToSinkFailed   ErrorKind = "WriteToSinkFailed"
	KindGetItemCountFailed  ErrorKind = "GetItemCountFailed"
	KindAttachStoreFailed   ErrorKind = "AttachStoreFailed"
	KindDetachStoreFailed   ErrorKind = "DetachStoreFailed"
	KindInvalidPath         ErrorKind = "InvalidPath"
	KindStoreNotFound       ErrorKind = "StoreNotFound"
	KindFolderNotFound      ErrorKind = "FolderNotFound"
	KindFileNotFound        ErrorKind = "FileNotFound"
)

// Sentinel errors for conditions that are fatal to a run or that callers
// branch on with errors.Is.
var (
	ErrObjectNotFound  = errors.New("directory object not found")
	ErrStoreNotFound   = errors.New("message store not found")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrRouteNotFound   = errors.New("no route for message class")
	ErrGroupNotVisible = errors.New("group not yet visible in directory")
	ErrBadObjectClass  = errors.New("unexpected directory object class")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrSinkUnavailable = errors.New("export sink unavailable")
)
