package cgen

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/raymyers/ralph-offload/pkg/objmodel"
	"github.com/raymyers/ralph-offload/pkg/tag"
	"github.com/raymyers/ralph-offload/pkg/wire"
)

const includes = `#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <math.h>
#include <sys/time.h>
`

// The stream helpers assemble values byte by byte so the generated program
// does not depend on the host byte order. $ORDER_READ and $ORDER_WRITE are
// replaced by the loop bodies for the configured order.
const runtimeText = `#define ERR_CALLBACK $ERR_CALLBACK
#define ERR_DESERIALIZE $ERR_DESERIALIZE
#define ERR_DISPATCH $ERR_DISPATCH

struct $STRING { int header_; int length; char body[1]; };
struct $ARRAY { int header_; int size_; };

static void jvst_callbacks(void);

static unsigned long long jvst_read_raw(int n) {
  unsigned char b[8];
  unsigned long long v = 0;
  int i;
  if (fread(b, 1, n, stdin) != (size_t)n) exit(ERR_DESERIALIZE);
  for (i = 0; i < n; i++) $ORDER_READ
  return v;
}

static void jvst_write_raw(unsigned long long v, int n) {
  unsigned char b[8];
  int i;
  for (i = 0; i < n; i++) $ORDER_WRITE
  fwrite(b, 1, n, stdout);
}

#define JVST_INT(name, type, n) \
  static type jvst_read_##name(void) { return (type)jvst_read_raw(n); } \
  static void jvst_write_##name(type v) { jvst_write_raw((unsigned long long)v, n); }
JVST_INT(bool, char, 1)
JVST_INT(byte, signed char, 1)
JVST_INT(char, unsigned short, 2)
JVST_INT(short, signed short, 2)
JVST_INT(int, int, 4)
JVST_INT(long, long, 8)

static float jvst_read_float(void) {
  unsigned int u = (unsigned int)jvst_read_raw(4);
  float f;
  memcpy(&f, &u, 4);
  return f;
}

static void jvst_write_float(float f) {
  unsigned int u;
  memcpy(&u, &f, 4);
  jvst_write_raw(u, 4);
}

static double jvst_read_double(void) {
  unsigned long long u = jvst_read_raw(8);
  double d;
  memcpy(&d, &u, 8);
  return d;
}

static void jvst_write_double(double d) {
  unsigned long long u;
  memcpy(&u, &d, 8);
  jvst_write_raw(u, 8);
}

static void* new_array(int num, int tid, int size) {
  struct $ARRAY* a = (struct $ARRAY*)$MALLOC(1, sizeof(struct $ARRAY) + (size_t)num * size);
  a->header_ = tid << 24;
  a->size_ = num;
  return a;
}

#define JVST_ARRAY(name, type, code, off) \
  static type* jvst_read_##name##_array(void) { \
    int n = jvst_read_int(), i; \
    type* a = (type*)new_array(n, code, sizeof(type)); \
    for (i = 0; i < n; i++) a[i + off] = jvst_read_##name(); \
    return a; \
  } \
  static void jvst_write_##name##_array(type* a) { \
    int n = a == 0 ? 0 : ((struct $ARRAY*)a)->size_, i; \
    jvst_write_int(n); \
    for (i = 0; i < n; i++) jvst_write_##name(a[i + off]); \
  }
JVST_ARRAY(bool, char, $BOOL_ARRAY, 8)
JVST_ARRAY(byte, signed char, $BYTE_ARRAY, 8)
JVST_ARRAY(char, unsigned short, $CHAR_ARRAY, 4)
JVST_ARRAY(short, signed short, $SHORT_ARRAY, 4)
JVST_ARRAY(int, int, $INT_ARRAY, 2)
JVST_ARRAY(long, long, $LONG_ARRAY, 1)
JVST_ARRAY(float, float, $FLOAT_ARRAY, 2)
JVST_ARRAY(double, double, $DOUBLE_ARRAY, 1)

static struct $STRING* jvst_read_string(void) {
  int n = jvst_read_int();
  struct $STRING* s = (struct $STRING*)$MALLOC(1, sizeof(struct $STRING) + n);
  s->header_ = $STRING_HEADER;
  s->length = n;
  if (n > 0 && fread(s->body, 1, n, stdin) != (size_t)n) exit(ERR_DESERIALIZE);
  return s;
}

static void jvst_write_string(struct $STRING* s) {
  int n = s == 0 ? 0 : s->length;
  jvst_write_int(n);
  if (n > 0) fwrite(s->body, 1, n, stdout);
}

static int jvm_lcmp(long a, long b) { return a > b ? 1 : a == b ? 0 : -1; }
static int jvm_fcmp(float a, float b) { return a > b ? 1 : a == b ? 0 : -1; }
static int jvm_dcmp(double a, double b) { return a > b ? 1 : a == b ? 0 : -1; }

static void jvst_dispatch_error(int tid, int line) {
  fprintf(stderr, "dispatch error tid=%d: line %d\n", tid, line);
  exit(ERR_DISPATCH);
}

static void** jvst_objects;
static int jvst_count;
static int jvst_read_record(int type, int index, void** slot);

static void* jvst_read_custom(void) {
  int header = jvst_read_int();
  int n = jvst_read_int();
  struct $ARRAY* a = (struct $ARRAY*)new_array(n, $BYTE_ARRAY, 1);
  if (n > 0 && fread((char*)(a + 1), 1, n, stdin) != (size_t)n) exit(ERR_DESERIALIZE);
  a->header_ = header;
  return a;
}

static void* jvst_read_elements(int type) {
  int n = jvst_read_int(), size = (type == $INT_ARRAY || type == $FLOAT_ARRAY) ? 4 : 8, i;
  char* a = (char*)new_array(n, type, size);
  for (i = 0; i < n; i++) {
    unsigned long long v = jvst_read_raw(size);
    if (size == 4) {
      unsigned int u = (unsigned int)v;
      memcpy(a + sizeof(struct $ARRAY) + i * 4, &u, 4);
    } else {
      memcpy(a + sizeof(struct $ARRAY) + i * 8, &v, 8);
    }
  }
  return a;
}

static int jvst_read_fields(int tid, int index, void** slot) {
  int size, offset = 1;
  int* obj;
  if (tid == $NULL_TAG) {
    if (slot) *slot = 0;
    return index;
  }
  if (tid & $OBJECT_ID_BIT) {
    if ((tid & ~$OBJECT_ID_BIT) >= index) exit(ERR_DESERIALIZE);
    if (slot) *slot = jvst_objects[tid & ~$OBJECT_ID_BIT];
    return index;
  }
  if (tid < $FIRST_CLASS || tid > $LAST_CLASS) exit(ERR_DESERIALIZE);
  if (index >= jvst_count) exit(ERR_DESERIALIZE);
  size = (int)jvst_read_raw(2);
  obj = (int*)$MALLOC(size + 1, sizeof(int));
  jvst_objects[index++] = obj;
  if (slot) *slot = obj;
  obj[0] = tid << $FLAG_BITS;
  while (offset < size) {
    int type = (int)jvst_read_raw(1);
    if (type == $INT || type == $FLOAT) {
      obj[offset++] = (int)jvst_read_raw(4);
      continue;
    }
    if (offset % 2 > 0) obj[offset++] = 0;
    if (offset + 2 > size) exit(ERR_DESERIALIZE);
    if (type == $LONG || type == $DOUBLE) {
      unsigned long long v = jvst_read_raw(8);
      memcpy(obj + offset, &v, 8);
    } else {
      index = jvst_read_record(type, index, (void**)(obj + offset));
    }
    offset += 2;
  }
  return index;
}

static int jvst_read_record(int type, int index, void** slot) {
  void* value;
  if (type >= $INT_ARRAY && type <= $DOUBLE_ARRAY) {
    value = jvst_read_elements(type);
  } else if (type == 0) {
    int tid = (int)jvst_read_raw(2);
    if (tid != $CUSTOM_TAG) return jvst_read_fields(tid, index, slot);
    value = jvst_read_custom();
  } else {
    exit(ERR_DESERIALIZE);
  }
  if (index >= jvst_count) exit(ERR_DESERIALIZE);
  if (slot) *slot = value;
  jvst_objects[index] = value;
  return index + 1;
}

static void* jvst_read_graph(void) {
  int i = 0;
  void* root;
  jvst_count = (int)jvst_read_raw(2);
  if (jvst_count < 1) return 0;
  jvst_objects = (void**)calloc(jvst_count, sizeof(void*));
  while (i < jvst_count) i = jvst_read_record((int)jvst_read_raw(1), i, 0);
  root = jvst_objects[0];
  free(jvst_objects);
  return root;
}
`

// Runtime returns the helper definitions every generated program starts
// with. The decoder rejects class tags above lastTag.
func Runtime(order binary.ByteOrder, malloc string, lastTag uint32) string {
	read := "v |= (unsigned long long)b[i] << (8 * i);"
	write := "b[i] = (unsigned char)(v >> (8 * i));"
	if order == binary.BigEndian {
		read = "v = (v << 8) | b[i];"
		write = "b[i] = (unsigned char)(v >> (8 * (n - 1 - i)));"
	}
	hex := func(k tag.Kind) string { return fmt.Sprintf("0x%02x", byte(k)) }
	r := strings.NewReplacer(
		"$ERR_CALLBACK", fmt.Sprint(wire.ExitCallback),
		"$ERR_DESERIALIZE", fmt.Sprint(wire.ExitDeserialize),
		"$ERR_DISPATCH", fmt.Sprint(wire.ExitDispatch),
		"$STRING_HEADER", fmt.Sprint(tag.Header(tag.String)),
		"$STRING", objmodel.StringStruct,
		"$ARRAY", objmodel.ArrayStruct,
		"$ORDER_READ", read,
		"$ORDER_WRITE", write,
		"$MALLOC", malloc,
		"$BOOL_ARRAY", hex(tag.BoolArray),
		"$BYTE_ARRAY", hex(tag.ByteArray),
		"$CHAR_ARRAY", hex(tag.CharArray),
		"$SHORT_ARRAY", hex(tag.ShortArray),
		"$INT_ARRAY", hex(tag.IntArray),
		"$LONG_ARRAY", hex(tag.LongArray),
		"$FLOAT_ARRAY", hex(tag.FloatArray),
		"$DOUBLE_ARRAY", hex(tag.DoubleArray),
		"$NULL_TAG", fmt.Sprint(tag.Null),
		"$CUSTOM_TAG", fmt.Sprint(tag.Custom),
		"$FIRST_CLASS", fmt.Sprint(tag.FirstClass),
		"$LAST_CLASS", fmt.Sprint(lastTag),
		"$OBJECT_ID_BIT", fmt.Sprintf("0x%x", tag.ObjectIDBit),
		"$FLAG_BITS", fmt.Sprint(tag.FlagBits),
		"$INT", hex(tag.Int),
		"$FLOAT", hex(tag.Float),
		"$LONG", hex(tag.Long),
		"$DOUBLE", hex(tag.Double),
	)
	return r.Replace(runtimeText)
}
