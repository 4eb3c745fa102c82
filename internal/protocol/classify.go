package protocol

import "fmt"

// Category is the CANopen message category derived from an identifier.
// The values are the codes the gateway firmware uses for each category.
type Category uint8

// Message categories (closed set)
const (
	CategoryNMT       Category = 0x00 // Network management control
	CategorySync      Category = 0x01
	CategoryTime      Category = 0x02 // Time stamp
	CategoryEmergency Category = 0x10
	CategoryPDO1TX    Category = 0x20 // Process data 1, device to host
	CategoryPDO1RX    Category = 0x21 // Process data 1, host to device
	CategoryPDO2TX    Category = 0x22
	CategoryPDO2RX    Category = 0x23
	CategoryPDO3TX    Category = 0x24
	CategoryPDO3RX    Category = 0x25
	CategoryPDO4TX    Category = 0x26
	CategoryPDO4RX    Category = 0x27
	CategorySDOTX     Category = 0x30 // Service data, device to host
	CategorySDORX     Category = 0x31 // Service data, host to device
	CategoryHeartbeat Category = 0x40 // Heartbeat / node guarding
	CategoryUnknown   Category = 0xFF
)

// Broadcast identifiers
const (
	IDNMT  uint32 = 0x000
	IDSync uint32 = 0x080
	IDTime uint32 = 0x100
)

// NodeMask extracts the node number from an addressed identifier
const NodeMask = 0x7F

var allCategories = []Category{
	CategoryNMT,
	CategorySync,
	CategoryTime,
	CategoryEmergency,
	CategoryPDO1TX,
	CategoryPDO1RX,
	CategoryPDO2TX,
	CategoryPDO2RX,
	CategoryPDO3TX,
	CategoryPDO3RX,
	CategoryPDO4TX,
	CategoryPDO4RX,
	CategorySDOTX,
	CategorySDORX,
	CategoryHeartbeat,
	CategoryUnknown,
}

// Categories returns every category in code order
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// idRange maps an inclusive identifier range to a category
type idRange struct {
	lo, hi   uint32
	category Category
}

// Function-code ranges, checked after the exact broadcast identifiers
var idRanges = []idRange{
	{0x081, 0x0FF, CategoryEmergency},
	{0x180, 0x1FF, CategoryPDO1TX},
	{0x200, 0x27F, CategoryPDO1RX},
	{0x280, 0x2FF, CategoryPDO2TX},
	{0x300, 0x37F, CategoryPDO2RX},
	{0x380, 0x3FF, CategoryPDO3TX},
	{0x400, 0x47F, CategoryPDO3RX},
	{0x480, 0x4FF, CategoryPDO4TX},
	{0x500, 0x57F, CategoryPDO4RX},
	{0x580, 0x5FF, CategorySDOTX},
	{0x600, 0x67F, CategorySDORX},
	{0x700, 0x77F, CategoryHeartbeat},
}

// Classify returns the category and node number for a CAN identifier.
// Node 0 means broadcast; every other identifier yields id & 0x7F.
func Classify(id uint32) (Category, uint8) {
	switch id {
	case IDNMT:
		return CategoryNMT, 0
	case IDSync:
		return CategorySync, 0
	case IDTime:
		return CategoryTime, 0
	}

	node := uint8(id & NodeMask)
	for _, r := range idRanges {
		if id >= r.lo && id <= r.hi {
			return r.category, node
		}
	}
	return CategoryUnknown, node
}

// IsBroadcast reports whether id carries no node address
func IsBroadcast(id uint32) bool {
	return id == IDNMT || id == IDSync || id == IDTime
}

// String returns the short category name used in frame listings
func (c Category) String() string {
	switch c {
	case CategoryNMT:
		return "NMT_CTRL"
	case CategorySync:
		return "SYNC"
	case CategoryTime:
		return "TIME"
	case CategoryEmergency:
		return "EMERGENCY"
	case CategoryPDO1TX:
		return "PDO1_TX"
	case CategoryPDO1RX:
		return "PDO1_RX"
	case CategoryPDO2TX:
		return "PDO2_TX"
	case CategoryPDO2RX:
		return "PDO2_RX"
	case CategoryPDO3TX:
		return "PDO3_TX"
	case CategoryPDO3RX:
		return "PDO3_RX"
	case CategoryPDO4TX:
		return "PDO4_TX"
	case CategoryPDO4RX:
		return "PDO4_RX"
	case CategorySDOTX:
		return "SDO_TX"
	case CategorySDORX:
		return "SDO_RX"
	case CategoryHeartbeat:
		return "HEARTBEAT"
	case CategoryUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Category(0x%02x)", uint8(c))
	}
}

// Description returns a human-readable category description
func (c Category) Description() string {
	switch c {
	case CategoryNMT:
		return "Network management control"
	case CategorySync:
		return "Synchronization"
	case CategoryTime:
		return "Time stamp"
	case CategoryEmergency:
		return "Emergency"
	case CategoryPDO1TX:
		return "Process data 1, device to host"
	case CategoryPDO1RX:
		return "Process data 1, host to device"
	case CategoryPDO2TX:
		return "Process data 2, device to host"
	case CategoryPDO2RX:
		return "Process data 2, host to device"
	case CategoryPDO3TX:
		return "Process data 3, device to host"
	case CategoryPDO3RX:
		return "Process data 3, host to device"
	case CategoryPDO4TX:
		return "Process data 4, device to host"
	case CategoryPDO4RX:
		return "Process data 4, host to device"
	case CategorySDOTX:
		return "Service data, device to host"
	case CategorySDORX:
		return "Service data, host to device"
	case CategoryHeartbeat:
		return "Heartbeat / node guard"
	case CategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unrecognized category 0x%02x", uint8(c))
	}
}

// MarshalText encodes the category by its short name
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClassifiedFrame is a decoded frame with its derived category and node
type ClassifiedFrame struct {
	Frame
	Category Category
	Node     uint8 // 0 = broadcast
}

// ClassifyFrame attaches the classification of f.ID to f
func ClassifyFrame(f Frame) ClassifiedFrame {
	cat, node := Classify(f.ID)
	return ClassifiedFrame{Frame: f, Category: cat, Node: node}
}

// String formats the frame as a single monitor line
func (cf ClassifiedFrame) String() string {
	return fmt.Sprintf("[%12.3f] ID:0x%03X Type:%-12s Node:%2d DLC:%d Data:[%s]",
		float64(cf.Timestamp)/1000.0, cf.ID, cf.Category, cf.Node, cf.DLC, cf.HexData())
}
