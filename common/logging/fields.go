package logging

const (
	// FieldError can be used instead of Err(err) if you have only the error message string.
	FieldError = "err"

	FieldComponent = "component"

	FieldTaskId     = "taskId"
	FieldClient     = "client"
	FieldServer     = "server"
	FieldAmount     = "amount"
	FieldCommitment = "commitment"
	FieldResultHash = "resultHash"

	FieldDuration = "duration"
	FieldUrl      = "url"
	FieldReqId    = "reqId"

	FieldRpcMethod = "rpcMethod"
	FieldRpcParams = "rpcParams"
)
