package dto

import (
	"github.com/qrave1/RehearsalHub/internal/usecase"
)

type PublishEventResponse struct {
	Targets int `json:"targets"`
}

type OnlineUsersResponse struct {
	Users []usecase.OnlineUser `json:"users"`
}

type RoomResponse struct {
	Room    string               `json:"room"`
	Members []usecase.RoomMember `json:"members"`
}

type GetMeResponse struct {
	UserID string `json:"userId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
