package network

// 消息ID。1xx 房间管理，2xx 游戏操作，3xx 服务端推送，4xx 好友。
const (
	MsgHeartbeat  = 1
	MsgCreateRoom = 101
	MsgJoinRoom   = 102
	MsgLeaveRoom  = 103
	MsgAddBot     = 104
	MsgStartGame  = 105
	MsgRematch    = 106
	MsgSubmitGrid = 201
	MsgPlaceCell  = 202
	MsgCallNumber = 203
	MsgRandomFill = 204
	MsgRoomState  = 301
	MsgJoined     = 302
	MsgError      = 303
	MsgAddFriend  = 401
	MsgDelFriend  = 402
	MsgFriends    = 403
)
