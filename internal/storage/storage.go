package storage

// Storage 元数据归档存储接口。铸造成功后归档最终的 CIP-25 JSON，
// 供审计追溯，失败不影响捐赠状态。
type Storage interface {
	Save(path string, data []byte) (string, error)
}
