package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status   string `json:"status" example:"OK" doc:"Состояние агента"`
	TenantID string `json:"tenant_id,omitempty" doc:"Текущий арендатор"`
	Remote   string `json:"remote" example:"online" enum:"online,offline,unreachable" doc:"Доступность удаленного хранилища"`
	Error    string `json:"error,omitempty"`
}
