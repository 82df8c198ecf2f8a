package interp

// harnessSource is the Python side of the session protocol: one JSON
// object per line on stdin, one per line on stdout. Each session owns a
// single namespace, so every target gets a fresh evaluation context by
// getting a fresh session.
//
// Requests:
//
//	{"id": n, "op": "import", "name": "pkg.mod"}   bind ns to the module
//	{"id": n, "op": "exec", "source": "..."}        run one example
//	{"id": n, "op": "reset"}                        restore the bound ns
//
// Responses:
//
//	{"id": n, "ok": true, "out": "captured stdout"}
//	{"id": n, "ok": false, "out": "...", "exc": "ValueError: boom\n"}
const harnessSource = `
import sys, json, io, traceback
from contextlib import redirect_stdout

ns = {"__name__": "__main__"}
snapshot = dict(ns)

def run(source):
    buf = io.StringIO()
    try:
        code = compile(source, "<doctest>", "single")
    except SyntaxError:
        try:
            code = compile(source, "<doctest>", "exec")
        except BaseException as e:
            return buf.getvalue(), "".join(traceback.format_exception_only(type(e), e))
    try:
        with redirect_stdout(buf):
            exec(code, ns)
    except BaseException as e:
        return buf.getvalue(), "".join(traceback.format_exception_only(type(e), e))
    return buf.getvalue(), None

for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    req = json.loads(line)
    resp = {"id": req.get("id", 0)}
    if req["op"] == "import":
        try:
            import importlib
            mod = importlib.import_module(req["name"])
            ns = dict(vars(mod))
            ns["__name__"] = "__main__"
            snapshot = dict(ns)
            resp["ok"] = True
            resp["out"] = ""
        except BaseException as e:
            resp["ok"] = False
            resp["out"] = ""
            resp["exc"] = "".join(traceback.format_exception_only(type(e), e))
    elif req["op"] == "exec":
        out, exc = run(req["source"])
        resp["ok"] = exc is None
        resp["out"] = out
        if exc is not None:
            resp["exc"] = exc
    elif req["op"] == "reset":
        ns = dict(snapshot)
        resp["ok"] = True
        resp["out"] = ""
    else:
        resp["ok"] = False
        resp["out"] = ""
        resp["exc"] = "unknown op: %r" % req["op"]
    sys.stdout.write(json.dumps(resp) + "\n")
    sys.stdout.flush()
`
