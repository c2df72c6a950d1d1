package model

// Tenant 看板跟踪的一个机器人实例
// JSON 字段与开通流程写入的 users 文件一致
type Tenant struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Location    string `json:"bot_dir,omitempty"` // 文件模式下的机器人目录，自动发现的租户为空
	Color       string `json:"color,omitempty"`
	Discovered  bool   `json:"discovered,omitempty"`
}
