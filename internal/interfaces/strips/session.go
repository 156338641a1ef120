// Package strips
package strips

// Session 单个管制席位的工作上下文
type Session struct {
	ID           string `json:"id"`
	AccessID     string `json:"accessId"`
	Airport      string `json:"airport"`
	ActiveRunway string `json:"activeRunway"`
	Pfatc        bool   `json:"pfatc"`
}

// SessionUpdate 会话部分更新, nil字段表示未携带
type SessionUpdate struct {
	ActiveRunway *string `json:"activeRunway,omitempty"`
	Pfatc        *bool   `json:"pfatc,omitempty"`
}

// UserDescriptor 连接查询参数中携带的用户描述
type UserDescriptor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
