package remote

// GRPCServiceName is the fully qualified name of the gRPC sync service.
// Every method exchanges google.protobuf.Struct messages shaped like the
// JSON bodies of the HTTP API.
const GRPCServiceName = "finny.v1.SyncService"

const (
	MethodPing              = "Ping"
	MethodRefresh           = "Refresh"
	MethodListBudgets       = "ListBudgets"
	MethodCreateBudget      = "CreateBudget"
	MethodUpdateBudget      = "UpdateBudget"
	MethodDeleteBudget      = "DeleteBudget"
	MethodListTransactions  = "ListTransactions"
	MethodCreateTransaction = "CreateTransaction"
	MethodUpdateTransaction = "UpdateTransaction"
	MethodDeleteTransaction = "DeleteTransaction"
	MethodUploadAttachment  = "UploadAttachment"
)

// GRPCMethod returns the full method path used on the wire.
func GRPCMethod(name string) string {
	return "/" + GRPCServiceName + "/" + name
}

// PageRequest is the gRPC list request.
type PageRequest struct {
	Page int `json:"page"`
}

// IDRequest addresses one record; Payload is empty for deletes.
type IDRequest[T any] struct {
	ID      string `json:"id"`
	Payload *T     `json:"payload,omitempty"`
}
