package packet

// Opcodes for the 3.80C Taiwan client. Client opcodes name the packets the
// client sends; server opcodes name what we send back. Only the opcodes this
// server actually handles or emits are listed.

// Client → server.
const (
	C_OPCODE_USE_SPELL               byte = 6   // cast skill by spellbook row/column
	C_OPCODE_REQUEST_ROLL            byte = 7   // return to character select
	C_OPCODE_VERSION                 byte = 14  // client version handshake
	C_OPCODE_MOVE                    byte = 29  // walk one tile
	C_OPCODE_CHAT                    byte = 40  // chat with type byte
	C_OPCODE_CREATE_CUSTOM_CHARACTER byte = 84  // create character
	C_OPCODE_LOGIN                   byte = 119 // account\0 password\0
	C_OPCODE_QUIT                    byte = 122 // clean logout
	C_OPCODE_FAR_ATTACK              byte = 123 // bow attack by object id
	C_OPCODE_ENTER_WORLD             byte = 137 // select character by name
	C_OPCODE_DELETE_CHARACTER        byte = 162 // delete character by name
	C_OPCODE_RESTART                 byte = 177 // restart after death
	C_OPCODE_BEANFUN_LOGIN           byte = 210 // action-byte login wrapper
	C_OPCODE_CHANGE_DIRECTION        byte = 225 // face a heading without moving
	C_OPCODE_ATTACK                  byte = 229 // melee attack by object id
	C_OPCODE_SAVEIO                  byte = 244 // client-driven save request
	C_OPCODE_ALIVE                   byte = 253 // keep-alive, no payload
)

// Server → client.
const (
	S_OPCODE_DELETE_CHAR_OK         byte = 6
	S_OPCODE_STATUS                 byte = 8
	S_OPCODE_MOVE_OBJECT            byte = 10
	S_OPCODE_DISCONNECT             byte = 18
	S_OPCODE_LOGIN_CHECK            byte = 21
	S_OPCODE_ATTACK                 byte = 30
	S_OPCODE_MAGIC_STATUS           byte = 37
	S_OPCODE_EFFECT                 byte = 55
	S_OPCODE_SAY                    byte = 81
	S_OPCODE_PUT_OBJECT             byte = 87
	S_OPCODE_CHARACTER_INFO         byte = 93
	S_OPCODE_CREATE_CHARACTER_CHECK byte = 106
	S_OPCODE_WEATHER                byte = 115
	S_OPCODE_REMOVE_OBJECT          byte = 120
	S_OPCODE_CHANGEHEADING          byte = 122
	S_OPCODE_TIME                   byte = 123
	S_OPCODE_NEW_CHAR_INFO          byte = 127
	S_OPCODE_VERSION_CHECK          byte = 139
	S_OPCODE_INITPACKET             byte = 150
	S_OPCODE_ACTION                 byte = 158
	S_OPCODE_ABILITY_SCORES         byte = 174
	S_OPCODE_NUM_CHARACTER          byte = 178
	S_OPCODE_WORLD                  byte = 206
	S_OPCODE_ENTER_WORLD_CHECK      byte = 223
	S_OPCODE_HP_METER               byte = 237
	S_OPCODE_MESSAGE                byte = 243
)
