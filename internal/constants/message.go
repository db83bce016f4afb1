package constants

type MessageType string

const (
	MsgTypeAlarm     MessageType = "Alarm"
	MsgTypeActuation MessageType = "Actuation"
	MsgTypeSnapshot  MessageType = "Snapshot"
	MsgTypeSubscribe MessageType = "Subscribe"
)

const (
	MsgVersion      = "1.0.0"
	MsgManufacturer = "smartfarm"
)
